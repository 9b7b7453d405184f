package catalogapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(Config{APIKey: "test-api-key", PriceListURL: url, RequestsPerSecond: 1000, Burst: 100}, zerolog.Nop())
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func samplePayload() domain.PriceListResponse {
	var payload domain.PriceListResponse
	payload.Data.GetEnterpriseListing.Edges = []domain.EnterpriseEdge{
		{Node: domain.EnterpriseNode{
			Code: "ACME",
			Children: []domain.CatalogSection{{
				Code: "CAT-1",
				Children: []domain.CatalogFolder{{
					Key: "Product",
					Children: []domain.CatalogProduct{{
						Code:            "T1",
						Description:     "Conference Table 30d x 60w x 29h",
						ProductCategory: []domain.ProductCategory{{ProductCategory: "Tables"}},
					}},
				}},
			}},
		}},
	}
	return payload
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{APIKey: "test-api-key", PriceListURL: "https://api.example.com/graphql"}, zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, "https://api.example.com/graphql", client.priceListURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 3, client.maxRetries)
	assert.NotNil(t, client.rateLimiter)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestBuildPriceListQuery(t *testing.T) {
	t.Run("no filter for empty vendor list", func(t *testing.T) {
		q, err := buildPriceListQuery(nil)
		require.NoError(t, err)
		assert.Contains(t, q, "getEnterpriseListing {")
		assert.NotContains(t, q, "filter")
	})

	t.Run("or filter over vendor codes", func(t *testing.T) {
		q, err := buildPriceListQuery([]string{"ACME", "GLOBEX"})
		require.NoError(t, err)
		assert.Contains(t, q, `getEnterpriseListing(filter: "{\"$or\":[{\"code\":\"ACME\"},{\"code\":\"GLOBEX\"}]}")`)
	})
}

func TestFetchPriceList_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-api-key", r.Header.Get("X-API-Key"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, req["query"], `\"code\":\"ACME\"`)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(samplePayload())
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.FetchPriceList(context.Background(), []string{"ACME"})

	require.NoError(t, err)
	require.Len(t, result.Data.GetEnterpriseListing.Edges, 1)
	assert.Equal(t, "ACME", result.Data.GetEnterpriseListing.Edges[0].Node.Code)
}

func TestFetchPriceList_GraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":[{"message":"invalid filter"}]}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).FetchPriceList(context.Background(), []string{"ACME"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestFetchPriceList_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(samplePayload())
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).FetchPriceList(context.Background(), nil)

	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchPriceList_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).FetchPriceList(context.Background(), nil)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchPriceList_AllRetriesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchPriceList(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchPriceList_MissingURL(t *testing.T) {
	_, err := newTestClient("").FetchPriceList(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)
}

func TestFetchPriceList_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(samplePayload())
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).FetchPriceList(ctx, nil)
	assert.Error(t, err)
}
