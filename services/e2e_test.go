package services

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/TianCal/secure-aggregation-tutorial/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_RegistryDrivenRound deploys a registry, four self-registering
// holders and a registry-backed coordinator, then runs one complete
// protocol round over real HTTP and checks the aggregate against the
// naive sum of the private values.
func TestE2E_RegistryDrivenRound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	_, registryURL := startTestRegistry(t)

	values := []protocol.Value{5, 7, 9, 0xfffffff0}
	holders := make([]*HTTPHolder, len(values))
	for i, v := range values {
		holders[i] = startSelfRegisteringHolder(t, v, registryURL)
	}

	// Wait until every holder's self-registration lands.
	require.Eventually(t, func() bool {
		resp, err := http.Get(registryURL + "/holders")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var list HolderListResponse
		if err := decodeJSONBody(resp, &list); err != nil {
			return false
		}
		return int(list.Count) == len(values)
	}, 5*time.Second, 50*time.Millisecond, "holders should register with the registry")

	_, coordURL := startTestCoordinator(t, registryURL)

	resp := putJSON(t, coordURL+"/initialize", &PeerListRequest{})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sum, status := getAggregate(t, coordURL)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, protocol.SumValues(values), sum)

	// Every holder's masked value has moved away from its original;
	// only the sum is meaningful.
	var maskedSum protocol.Value
	for _, h := range holders {
		maskedSum += h.Holder().MaskedValue()
	}
	assert.Equal(t, protocol.SumValues(values), maskedSum)
}

func startSelfRegisteringHolder(t *testing.T, value protocol.Value, registryURL string) *HTTPHolder {
	t.Helper()

	host := testutil.NewServiceHost(t)
	config := &ServiceConfig{
		AggregationConfig: testutil.NewTestAggregationConfig(),
		PublicURL:         host.URL,
		RegistryURL:       registryURL,
	}

	holder := protocol.NewHolder(host.URL, value)
	httpHolder, err := NewHTTPHolder(config, holder, testutil.DiscardLogger())
	require.NoError(t, err)

	r := chi.NewRouter()
	httpHolder.RegisterRoutes(r)
	host.Serve(t, r)

	require.NoError(t, httpHolder.Start(t.Context()))
	return httpHolder
}

// TestE2E_Orchestrator runs the in-process deployment path with fixed
// values and a deterministic mask seed, twice, and expects identical
// behavior both times.
func TestE2E_Orchestrator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	for run := 0; run < 2; run++ {
		orch := NewOrchestrator(&OrchestratorConfig{
			NumHolders: 3,
			BasePort:   19400 + run*8,
			Values:     []protocol.Value{5, 7, 9},
			MaskSeed:   []byte("orchestrator e2e seed"),
			Log:        testutil.DiscardLogger(),
		})

		require.NoError(t, orch.Deploy())

		sum, err := orch.RunRound(t.Context())
		require.NoError(t, err)
		assert.Equal(t, protocol.Value(21), sum)
		assert.Equal(t, orch.NaiveSum(), sum)

		require.NoError(t, orch.Shutdown())
	}
}

func decodeJSONBody(resp *http.Response, out any) error {
	return json.NewDecoder(resp.Body).Decode(out)
}
