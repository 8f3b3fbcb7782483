// Package testutil provides helpers shared by the package tests.
package testutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/stretchr/testify/require"
)

// =====================================
// Configuration Generators
// =====================================

// TestConfigOption modifies an AggregationConfig.
type TestConfigOption func(*protocol.AggregationConfig)

// WithValueRange sets the random startup value range.
func WithValueRange(min, max protocol.Value) TestConfigOption {
	return func(cfg *protocol.AggregationConfig) {
		cfg.ValueMin = min
		cfg.ValueMax = max
	}
}

// WithRequestTimeout sets the peer request timeout.
func WithRequestTimeout(d time.Duration) TestConfigOption {
	return func(cfg *protocol.AggregationConfig) {
		cfg.RequestTimeout = d
	}
}

// NewTestAggregationConfig returns the default config with options
// applied.
func NewTestAggregationConfig(options ...TestConfigOption) *protocol.AggregationConfig {
	cfg := protocol.DefaultAggregationConfig()
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// =====================================
// Mask Sources
// =====================================

// SequenceMaskSource replays a fixed mask sequence, for literal protocol
// traces.
type SequenceMaskSource struct {
	Masks []protocol.Value
	next  int
}

func (s *SequenceMaskSource) Next() (protocol.Value, error) {
	if s.next >= len(s.Masks) {
		return 0, errors.New("mask sequence exhausted")
	}
	m := s.Masks[s.next]
	s.next++
	return m, nil
}

// =====================================
// Service Hosting
// =====================================

// ServiceHost binds a loopback listener before the service exists, so a
// service whose endpoint doubles as its identity can be constructed with
// its final URL.
type ServiceHost struct {
	Listener net.Listener
	URL      string

	srv *http.Server
}

// NewServiceHost reserves a loopback port. Serve must be called before
// the host accepts requests.
func NewServiceHost(t *testing.T) *ServiceHost {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return &ServiceHost{
		Listener: ln,
		URL:      fmt.Sprintf("http://%s", ln.Addr().String()),
	}
}

// Serve starts the handler on the reserved listener and registers
// cleanup with t.
func (h *ServiceHost) Serve(t *testing.T, handler http.Handler) {
	t.Helper()

	h.srv = &http.Server{Handler: handler}
	go h.srv.Serve(h.Listener)

	t.Cleanup(func() {
		h.srv.Close()
	})
}

// =====================================
// Logging
// =====================================

// DiscardLogger returns a logger that drops everything, keeping test
// output readable.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
