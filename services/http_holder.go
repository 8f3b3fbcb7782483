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

// HTTPHolder wraps a protocol.Holder with the holder's wire surface and
// registry integration. It is also the holder's MaskSender: outbound
// masks ride POST /maskbyadding to the peer's endpoint.
type HTTPHolder struct {
	*baseService
	holder *protocol.Holder
}

// NewHTTPHolder creates the HTTP service around holder. The holder's
// identity must equal config.Endpoint() or peers would address it
// inconsistently.
func NewHTTPHolder(config *ServiceConfig, holder *protocol.Holder, log *slog.Logger) (*HTTPHolder, error) {
	if holder.Identity() != config.Endpoint() {
		return nil, fmt.Errorf("holder identity %q does not match service endpoint %q", holder.Identity(), config.Endpoint())
	}

	return &HTTPHolder{
		baseService: newBaseService(config, log),
		holder:      holder,
	}, nil
}

// RegisterRoutes registers the holder's wire surface.
func (h *HTTPHolder) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Put("/interact", h.handleInteract)
	r.Post("/maskbyadding", h.handleMaskByAdding)
	r.Get("/sharevalue", h.handleShareValue)
}

// Start announces the holder to the registry when one is configured.
func (h *HTTPHolder) Start(ctx context.Context) error {
	return h.registerWithRegistry(ctx)
}

// Holder exposes the wrapped protocol holder.
func (h *HTTPHolder) Holder() *protocol.Holder {
	return h.holder
}

// SendMask implements protocol.MaskSender over HTTP.
func (h *HTTPHolder) SendMask(ctx context.Context, peer string, mask protocol.Value) error {
	if err := h.postJSON(ctx, peer+"/maskbyadding", &MaskRequest{Mask: mask}, nil); err != nil {
		return err
	}
	metrics.IncMaskSent()
	return nil
}

// handleInteract receives the peer list from the coordinator and runs
// the masking phase against every listed peer before acknowledging.
func (h *HTTPHolder) handleInteract(w http.ResponseWriter, r *http.Request) {
	var req PeerListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if int(req.NumCollaborators) != len(req.PeerEndpoints) {
		http.Error(w, "num_collaborators does not match peer list length", http.StatusBadRequest)
		return
	}

	if err := h.holder.RunInteraction(r.Context(), req.PeerEndpoints, h); err != nil {
		h.log.Error("Masking interaction failed", "err", err)
		switch {
		case errors.Is(err, protocol.ErrSelfMasking):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, protocol.ErrPeerUnreachable):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	metrics.IncInteractionRun()
	h.log.Info("Masking interaction complete", "peers", len(req.PeerEndpoints), "maskedValue", h.holder.MaskedValue())

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("interaction complete"))
}

// handleMaskByAdding applies one inbound mask to the running masked
// value.
func (h *HTTPHolder) handleMaskByAdding(w http.ResponseWriter, r *http.Request) {
	var req MaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.holder.AddMask(req.Mask)
	metrics.IncMaskApplied()
	h.log.Debug("Applied inbound mask", "mask", req.Mask, "maskedValue", h.holder.MaskedValue())

	w.WriteHeader(http.StatusOK)
}

// handleShareValue reveals the current masked value.
func (h *HTTPHolder) handleShareValue(w http.ResponseWriter, r *http.Request) {
	masked := h.holder.MaskedValue()
	h.log.Info("Shared masked value", "maskedValue", masked)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&MaskedValueResponse{MaskedValue: masked})
}
