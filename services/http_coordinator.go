package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/TianCal/secure-aggregation-tutorial/metrics"
	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HTTPCoordinator wraps a protocol.Coordinator with the coordinator's
// wire surface. It is the coordinator's PeerListSender and
// ValueRevealer: peer lists ride PUT /interact and reveals ride
// GET /sharevalue against each holder's endpoint.
type HTTPCoordinator struct {
	*baseService
	coord *protocol.Coordinator
}

// NewHTTPCoordinator creates the HTTP service around a fresh
// coordinator.
func NewHTTPCoordinator(config *ServiceConfig, log *slog.Logger) *HTTPCoordinator {
	return &HTTPCoordinator{
		baseService: newBaseService(config, log),
		coord:       protocol.NewCoordinator(),
	}
}

// RegisterRoutes registers the coordinator's wire surface.
func (c *HTTPCoordinator) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Put("/initialize", c.handleInitialize)
	r.Get("/aggregate", c.handleAggregate)
}

// Coordinator exposes the wrapped protocol coordinator.
func (c *HTTPCoordinator) Coordinator() *protocol.Coordinator {
	return c.coord
}

// SendPeerList implements protocol.PeerListSender over HTTP.
func (c *HTTPCoordinator) SendPeerList(ctx context.Context, holder string, peers []string) error {
	req := &PeerListRequest{
		PeerEndpoints:    peers,
		NumCollaborators: uint32(len(peers)),
	}
	return c.putJSON(ctx, holder+"/interact", req)
}

// RevealValue implements protocol.ValueRevealer over HTTP.
func (c *HTTPCoordinator) RevealValue(ctx context.Context, holder string) (protocol.Value, error) {
	var resp MaskedValueResponse
	if err := c.getJSON(ctx, holder+"/sharevalue", &resp); err != nil {
		return 0, err
	}
	return resp.MaskedValue, nil
}

// handleInitialize records the roster and drives the masking phase. An
// empty peer list with a configured registry pulls the roster from the
// registry's current holder list.
func (c *HTTPCoordinator) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req PeerListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if int(req.NumCollaborators) != len(req.PeerEndpoints) {
		http.Error(w, "num_collaborators does not match peer list length", http.StatusBadRequest)
		return
	}

	roster := req.PeerEndpoints
	if len(roster) == 0 && c.config.RegistryURL != "" {
		fetched, err := c.fetchHolders(r.Context())
		if err != nil {
			c.log.Error("Roster fetch from registry failed", "err", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		roster = fetched
	}

	if err := c.coord.Initialize(r.Context(), roster, c); err != nil {
		c.log.Error("Roster initialization failed", "err", err)
		switch {
		case errors.Is(err, protocol.ErrDuplicateEndpoint):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, protocol.ErrPeerUnreachable):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			// A holder rejecting its peer list (self-reference) also
			// lands here via the non-2xx mapping; report it as a
			// configuration error.
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	c.log.Info("Initialized roster", "holders", len(roster))

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "initialized %d holders", len(roster))
}

// handleAggregate collects every holder's masked value and answers with
// the wraparound sum.
func (c *HTTPCoordinator) handleAggregate(w http.ResponseWriter, r *http.Request) {
	sum, err := c.coord.Aggregate(r.Context(), c)
	if err != nil {
		c.log.Error("Aggregation failed", "err", err)
		switch {
		case errors.Is(err, protocol.ErrRosterNotInitialized):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, protocol.ErrPeerUnreachable):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	metrics.IncAggregateServed()
	c.log.Info("Served aggregate", "aggregateValue", sum)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&AggregateResponse{AggregateValue: sum})
}
