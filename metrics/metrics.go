// Package metrics exposes protocol counters over a Prometheus-compatible
// sidecar server.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	vm "github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the metrics endpoint on its own listener, kept
// separate from the service's public API.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given namespace listening on
// addr. An empty addr yields a disabled server whose ListenAndServe
// returns immediately.
func New(namespace, addr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, fmt.Errorf("metrics namespace must not be empty")
	}
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vm.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{Addr: addr, Handler: mux},
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

var (
	masksApplied     = vm.NewCounter("secure_aggregation_masks_applied_total")
	masksSent        = vm.NewCounter("secure_aggregation_masks_sent_total")
	interactionsRun  = vm.NewCounter("secure_aggregation_interactions_total")
	aggregatesServed = vm.NewCounter("secure_aggregation_aggregates_served_total")
	holderRegistered = vm.NewCounter("secure_aggregation_registered_holders_total")
)

// IncMaskApplied counts an inbound mask applied to a holder.
func IncMaskApplied() { masksApplied.Inc() }

// IncMaskSent counts an outbound mask delivered to a peer.
func IncMaskSent() { masksSent.Inc() }

// IncInteractionRun counts a completed masking interaction.
func IncInteractionRun() { interactionsRun.Inc() }

// IncAggregateServed counts an aggregate query answered.
func IncAggregateServed() { aggregatesServed.Inc() }

// IncHolderRegistered counts a holder registration accepted.
func IncHolderRegistered() { holderRegistered.Inc() }
