package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
)

// ServiceConfig contains configuration shared by the HTTP services.
type ServiceConfig struct {
	AggregationConfig *protocol.AggregationConfig

	// HTTPAddr is the listen address (host:port).
	HTTPAddr string

	// PublicURL is the endpoint other participants reach this service
	// at. Defaults to "http://" + HTTPAddr.
	PublicURL string

	// RegistryURL points at the central holder registry. Empty disables
	// registry integration.
	RegistryURL string
}

// Endpoint returns the service's public endpoint identity. A listen
// address without a host, of the ":3001" form, maps to localhost.
func (c *ServiceConfig) Endpoint() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	addr := c.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s", addr)
}

// RequestTimeout returns the configured peer-request timeout.
func (c *ServiceConfig) RequestTimeout() time.Duration {
	if c.AggregationConfig != nil && c.AggregationConfig.RequestTimeout > 0 {
		return c.AggregationConfig.RequestTimeout
	}
	return 10 * time.Second
}

// PeerListRequest carries the roster or a peer list. Endpoints are
// ordered; NumCollaborators must match their count.
type PeerListRequest struct {
	PeerEndpoints    []string `json:"peer_endpoints"`
	NumCollaborators uint32   `json:"num_collaborators"`
}

// MaskRequest carries one masking value from peer to peer.
type MaskRequest struct {
	Mask protocol.Value `json:"mask"`
}

// MaskedValueResponse answers a reveal query.
type MaskedValueResponse struct {
	MaskedValue protocol.Value `json:"masked_value"`
}

// AggregateResponse answers an aggregate query.
type AggregateResponse struct {
	AggregateValue protocol.Value `json:"aggregate_value"`
}

// RegisterHolderRequest is a holder's self-registration with the
// registry.
type RegisterHolderRequest struct {
	Endpoint string `json:"endpoint"`
}

// RegisterHolderResponse confirms a registry registration.
type RegisterHolderResponse struct {
	Success  bool   `json:"success"`
	Endpoint string `json:"endpoint,omitempty"`
	Message  string `json:"message,omitempty"`
}

// HolderListResponse lists registered holder endpoints in registration
// order.
type HolderListResponse struct {
	Holders []string `json:"holders"`
	Count   uint32   `json:"count"`
}
