package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/TianCal/secure-aggregation-tutorial/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestHolder hosts a holder service on a loopback port and returns
// it together with its endpoint URL.
func startTestHolder(t *testing.T, value protocol.Value, masks protocol.MaskSource) (*HTTPHolder, string) {
	t.Helper()

	host := testutil.NewServiceHost(t)
	config := &ServiceConfig{
		AggregationConfig: testutil.NewTestAggregationConfig(),
		PublicURL:         host.URL,
	}

	holder := protocol.NewHolder(host.URL, value)
	if masks != nil {
		holder.SetMaskSource(masks)
	}

	httpHolder, err := NewHTTPHolder(config, holder, testutil.DiscardLogger())
	require.NoError(t, err)

	r := chi.NewRouter()
	httpHolder.RegisterRoutes(r)
	host.Serve(t, r)

	return httpHolder, host.URL
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHolderMaskByAdding(t *testing.T) {
	holder, endpoint := startTestHolder(t, 10, nil)

	body, _ := json.Marshal(&MaskRequest{Mask: 100})
	resp, err := http.Post(endpoint+"/maskbyadding", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, protocol.Value(110), holder.Holder().MaskedValue())
}

func TestHolderMaskByAddingMalformed(t *testing.T) {
	holder, endpoint := startTestHolder(t, 10, nil)

	resp, err := http.Post(endpoint+"/maskbyadding", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, protocol.Value(10), holder.Holder().MaskedValue(), "malformed payload must not mutate state")
}

func TestHolderShareValue(t *testing.T) {
	holder, endpoint := startTestHolder(t, 42, nil)
	holder.Holder().AddMask(8)

	for i := 0; i < 3; i++ {
		resp, err := http.Get(endpoint + "/sharevalue")
		require.NoError(t, err)

		var reveal MaskedValueResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&reveal))
		resp.Body.Close()

		assert.Equal(t, protocol.Value(50), reveal.MaskedValue, "reveal must be idempotent")
	}
}

func TestHolderInteract(t *testing.T) {
	initiator, endpoint := startTestHolder(t, 50, &testutil.SequenceMaskSource{Masks: []protocol.Value{100, 200}})
	peer1, peer1URL := startTestHolder(t, 7, nil)
	peer2, peer2URL := startTestHolder(t, 9, nil)

	resp := putJSON(t, endpoint+"/interact", &PeerListRequest{
		PeerEndpoints:    []string{peer1URL, peer2URL},
		NumCollaborators: 2,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, protocol.Value(50).Sub(100).Sub(200), initiator.Holder().MaskedValue())
	assert.Equal(t, protocol.Value(107), peer1.Holder().MaskedValue())
	assert.Equal(t, protocol.Value(209), peer2.Holder().MaskedValue())
}

func TestHolderInteractRejectsSelf(t *testing.T) {
	holder, endpoint := startTestHolder(t, 50, nil)

	resp := putJSON(t, endpoint+"/interact", &PeerListRequest{
		PeerEndpoints:    []string{endpoint},
		NumCollaborators: 1,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, protocol.Value(50), holder.Holder().MaskedValue())
}

func TestHolderInteractCountMismatch(t *testing.T) {
	holder, endpoint := startTestHolder(t, 50, nil)

	resp := putJSON(t, endpoint+"/interact", &PeerListRequest{
		PeerEndpoints:    []string{"http://localhost:1"},
		NumCollaborators: 2,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, protocol.Value(50), holder.Holder().MaskedValue())
}

func TestHolderInteractUnreachablePeer(t *testing.T) {
	_, endpoint := startTestHolder(t, 50, nil)

	// A loopback port nothing listens on.
	resp := putJSON(t, endpoint+"/interact", &PeerListRequest{
		PeerEndpoints:    []string{"http://127.0.0.1:1"},
		NumCollaborators: 1,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHolderInteractMalformed(t *testing.T) {
	_, endpoint := startTestHolder(t, 50, nil)

	req, err := http.NewRequest(http.MethodPut, endpoint+"/interact", bytes.NewReader([]byte("}{")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHolderIdentityMismatch(t *testing.T) {
	config := &ServiceConfig{PublicURL: "http://localhost:9999"}
	holder := protocol.NewHolder("http://localhost:1234", 1)

	_, err := NewHTTPHolder(config, holder, testutil.DiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestHolderStartRegistersWithRegistry(t *testing.T) {
	store := NewInMemoryStore()
	registry := NewRegistry(store, testutil.DiscardLogger())

	registryHost := testutil.NewServiceHost(t)
	r := chi.NewRouter()
	registry.RegisterRoutes(r)
	registryHost.Serve(t, r)

	holderHost := testutil.NewServiceHost(t)
	config := &ServiceConfig{
		PublicURL:   holderHost.URL,
		RegistryURL: registryHost.URL,
	}
	holder := protocol.NewHolder(holderHost.URL, 3)
	httpHolder, err := NewHTTPHolder(config, holder, testutil.DiscardLogger())
	require.NoError(t, err)

	hr := chi.NewRouter()
	httpHolder.RegisterRoutes(hr)
	holderHost.Serve(t, hr)

	require.NoError(t, httpHolder.Start(t.Context()))

	holders, err := store.ListHolders()
	require.NoError(t, err)
	assert.Equal(t, []string{holderHost.URL}, holders)
}
