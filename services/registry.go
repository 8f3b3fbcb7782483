package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/TianCal/secure-aggregation-tutorial/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Registry provides central holder discovery. Holders self-register
// their endpoints; coordinators pull the list to build a roster.
type Registry struct {
	log   *slog.Logger
	store RosterStore
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store RosterStore, log *slog.Logger) *Registry {
	return &Registry{log: log, store: store}
}

// RegisterRoutes registers the registry's public routes. Browser demos
// query the registry directly, so the routes allow cross-origin reads.
func (r *Registry) RegisterRoutes(router chi.Router) {
	router.Group(func(router chi.Router) {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		}))

		router.Post("/register", r.handleRegister)
		router.Post("/unregister", r.handleUnregister)
		router.Get("/holders", r.handleListHolders)
	})
}

func (r *Registry) handleRegister(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterHolderRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validateEndpoint(regReq.Endpoint); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.store.SaveHolder(regReq.Endpoint); err != nil {
		r.log.Error("Saving holder failed", "endpoint", regReq.Endpoint, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.IncHolderRegistered()
	r.log.Info("Registered holder", "endpoint", regReq.Endpoint)

	json.NewEncoder(w).Encode(&RegisterHolderResponse{
		Success:  true,
		Endpoint: regReq.Endpoint,
	})
}

func (r *Registry) handleUnregister(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterHolderRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.store.DeleteHolder(regReq.Endpoint); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	r.log.Info("Unregistered holder", "endpoint", regReq.Endpoint)
	w.WriteHeader(http.StatusOK)
}

func (r *Registry) handleListHolders(w http.ResponseWriter, req *http.Request) {
	holders, err := r.store.ListHolders()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&HolderListResponse{
		Holders: holders,
		Count:   uint32(len(holders)),
	})
}

// validateEndpoint requires an absolute http(s) URL so the endpoint can
// serve as both identity and address.
func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &url.Error{Op: "parse", URL: endpoint, Err: errNotAbsoluteHTTP}
	}
	return nil
}

var errNotAbsoluteHTTP = &endpointError{"endpoint must be an absolute http or https URL"}

type endpointError struct{ msg string }

func (e *endpointError) Error() string { return e.msg }
