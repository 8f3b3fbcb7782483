package services

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/TianCal/secure-aggregation-tutorial/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestCoordinator hosts a coordinator service on a loopback port.
func startTestCoordinator(t *testing.T, registryURL string) (*HTTPCoordinator, string) {
	t.Helper()

	host := testutil.NewServiceHost(t)
	config := &ServiceConfig{
		AggregationConfig: testutil.NewTestAggregationConfig(),
		PublicURL:         host.URL,
		RegistryURL:       registryURL,
	}

	coord := NewHTTPCoordinator(config, testutil.DiscardLogger())

	r := chi.NewRouter()
	coord.RegisterRoutes(r)
	host.Serve(t, r)

	return coord, host.URL
}

func getAggregate(t *testing.T, coordURL string) (protocol.Value, int) {
	t.Helper()

	resp, err := http.Get(coordURL + "/aggregate")
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, resp.StatusCode
	}

	var agg AggregateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&agg))
	return agg.AggregateValue, resp.StatusCode
}

func TestCoordinatorFullRound(t *testing.T) {
	values := []protocol.Value{5, 7, 9}
	roster := make([]string, len(values))
	for i, v := range values {
		_, roster[i] = startTestHolder(t, v, nil)
	}

	_, coordURL := startTestCoordinator(t, "")

	resp := putJSON(t, coordURL+"/initialize", &PeerListRequest{
		PeerEndpoints:    roster,
		NumCollaborators: uint32(len(roster)),
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sum, status := getAggregate(t, coordURL)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, protocol.Value(21), sum, "masks must cancel regardless of the random draws")
}

func TestCoordinatorAggregateBeforeInitialize(t *testing.T) {
	_, coordURL := startTestCoordinator(t, "")

	_, status := getAggregate(t, coordURL)
	assert.Equal(t, http.StatusConflict, status)
}

func TestCoordinatorRejectsDuplicateRoster(t *testing.T) {
	_, holderURL := startTestHolder(t, 1, nil)
	_, coordURL := startTestCoordinator(t, "")

	resp := putJSON(t, coordURL+"/initialize", &PeerListRequest{
		PeerEndpoints:    []string{holderURL, holderURL},
		NumCollaborators: 2,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, status := getAggregate(t, coordURL)
	assert.Equal(t, http.StatusConflict, status, "a rejected roster must not count as initialized")
}

func TestCoordinatorUnreachableHolder(t *testing.T) {
	_, coordURL := startTestCoordinator(t, "")

	resp := putJSON(t, coordURL+"/initialize", &PeerListRequest{
		PeerEndpoints:    []string{"http://127.0.0.1:1"},
		NumCollaborators: 1,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCoordinatorInitializeFromRegistry(t *testing.T) {
	store := NewInMemoryStore()
	registry := NewRegistry(store, testutil.DiscardLogger())

	registryHost := testutil.NewServiceHost(t)
	r := chi.NewRouter()
	registry.RegisterRoutes(r)
	registryHost.Serve(t, r)

	values := []protocol.Value{11, 22, 33}
	for _, v := range values {
		_, holderURL := startTestHolder(t, v, nil)
		require.NoError(t, store.SaveHolder(holderURL))
	}

	_, coordURL := startTestCoordinator(t, registryHost.URL)

	// Empty peer list pulls the roster from the registry.
	resp := putJSON(t, coordURL+"/initialize", &PeerListRequest{})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sum, status := getAggregate(t, coordURL)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, protocol.Value(66), sum)
}

func TestCoordinatorEmptyRosterAggregatesToZero(t *testing.T) {
	_, coordURL := startTestCoordinator(t, "")

	resp := putJSON(t, coordURL+"/initialize", &PeerListRequest{})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sum, status := getAggregate(t, coordURL)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, protocol.Value(0), sum)
}
