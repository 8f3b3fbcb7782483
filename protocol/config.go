package protocol

import "time"

// AggregationConfig provides configuration parameters shared by protocol
// participants.
type AggregationConfig struct {
	// ValueMin and ValueMax bound the uniform range a holder draws its
	// private value from when none is supplied at startup.
	ValueMin Value `json:"value_min"`
	ValueMax Value `json:"value_max"`

	// RequestTimeout bounds each peer-to-peer request. The protocol
	// itself has no timeout semantics; a stalled peer stalls the
	// initiating holder, and this only keeps a dead TCP peer from
	// hanging a process forever.
	RequestTimeout time.Duration `json:"request_timeout,string"`
}

// DefaultAggregationConfig returns the demo defaults.
func DefaultAggregationConfig() *AggregationConfig {
	return &AggregationConfig{
		ValueMin:       5,
		ValueMax:       12,
		RequestTimeout: 10 * time.Second,
	}
}
