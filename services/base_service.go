package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
)

// baseService contains the HTTP plumbing shared by the holder and
// coordinator services: one outbound client with the protocol's request
// timeout, JSON helpers, and registry integration.
type baseService struct {
	config     *ServiceConfig
	log        *slog.Logger
	httpClient *http.Client
}

func newBaseService(config *ServiceConfig, log *slog.Logger) *baseService {
	return &baseService{
		config:     config,
		log:        log,
		httpClient: &http.Client{Timeout: config.RequestTimeout()},
	}
}

// registerWithRegistry announces this service's endpoint to the central
// registry. A no-op when no registry is configured.
func (b *baseService) registerWithRegistry(ctx context.Context) error {
	if b.config.RegistryURL == "" {
		return nil
	}

	req := &RegisterHolderRequest{Endpoint: b.config.Endpoint()}
	var resp RegisterHolderResponse
	if err := b.postJSON(ctx, b.config.RegistryURL+"/register", req, &resp); err != nil {
		return fmt.Errorf("registry registration failed: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("registry rejected registration: %s", resp.Message)
	}
	return nil
}

// fetchHolders retrieves the registry's current holder list.
func (b *baseService) fetchHolders(ctx context.Context) ([]string, error) {
	if b.config.RegistryURL == "" {
		return nil, fmt.Errorf("no registry configured")
	}

	var list HolderListResponse
	if err := b.getJSON(ctx, b.config.RegistryURL+"/holders", &list); err != nil {
		return nil, fmt.Errorf("fetch holders: %w", err)
	}
	return list.Holders, nil
}

func (b *baseService) postJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return b.doJSON(httpReq, out)
}

func (b *baseService) putJSON(ctx context.Context, url string, in any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return b.doJSON(httpReq, nil)
}

func (b *baseService) getJSON(ctx context.Context, url string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return b.doJSON(httpReq, out)
}

// doJSON executes the request and decodes a JSON response into out when
// out is non-nil. Transport errors and non-2xx statuses map to
// ErrPeerUnreachable so callers can classify the failure.
func (b *baseService) doJSON(req *http.Request, out any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", req.URL, protocol.ErrPeerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s: %w", req.URL, resp.StatusCode, string(respBody), protocol.ErrPeerUnreachable)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL, err)
	}
	return nil
}
