package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rfpquote/backend/internal/infrastructure/encoder"
	"gonum.org/v1/gonum/mat"
)

// fakeEncoder returns pinned vectors for known texts and hashes everything else
type fakeEncoder struct {
	mu       sync.Mutex
	fallback *encoder.Hashing
	pinned   map[string][]float64
	calls    int
	texts    int
	err      error
}

func newFakeEncoder(dim int) *fakeEncoder {
	return &fakeEncoder{
		fallback: encoder.NewHashing(dim),
		pinned:   make(map[string][]float64),
	}
}

// pin fixes the embedding of text; vec must have the encoder's width
func (f *fakeEncoder) pin(text string, vec ...float64) *fakeEncoder {
	f.pinned[text] = vec
	return f
}

func (f *fakeEncoder) Encode(ctx context.Context, texts []string) (*mat.Dense, error) {
	f.mu.Lock()
	f.calls++
	f.texts += len(texts)
	err := f.err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	m, err := f.fallback.Encode(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, t := range texts {
		if vec, ok := f.pinned[t]; ok {
			m.SetRow(i, vec)
		}
	}
	return m, nil
}

func (f *fakeEncoder) Dimension() int    { return f.fallback.Dimension() }
func (f *fakeEncoder) ModelInfo() string { return "fake" }

func (f *fakeEncoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memoryEmbeddingCache is an in-memory domain.EmbeddingCache
type memoryEmbeddingCache struct {
	m       *mat.Dense
	saveErr error
	loads   int
	saves   int
}

func (c *memoryEmbeddingCache) Load() (*mat.Dense, error) {
	c.loads++
	if c.m == nil {
		return nil, domain.ErrCacheMiss
	}
	return mat.DenseCopyOf(c.m), nil
}

func (c *memoryEmbeddingCache) Save(m *mat.Dense) error {
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.m = mat.DenseCopyOf(m)
	return nil
}

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MockCacheRepository) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockCatalogClient is a mock implementation of domain.CatalogClient
type MockCatalogClient struct {
	mu       sync.Mutex
	payload  *domain.PriceListResponse
	err      error
	calls    int
	lastArgs []string

	// entered receives a value when a fetch starts; gate, when set, holds the fetch
	// until it is closed or ctx ends
	entered chan struct{}
	gate    chan struct{}
}

func (m *MockCatalogClient) FetchPriceList(ctx context.Context, vendorCodes []string) (*domain.PriceListResponse, error) {
	if m.entered != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastArgs = vendorCodes
	if m.err != nil {
		return nil, m.err
	}
	return m.payload, nil
}

func (m *MockCatalogClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// testProduct is a product row for buildPayload
type testProduct struct {
	code, description, category string
}

// buildPayload nests products per vendor the way the price list API does
func buildPayload(vendors map[string][]testProduct, order ...string) *domain.PriceListResponse {
	resp := &domain.PriceListResponse{}
	for _, v := range order {
		var products []domain.CatalogProduct
		for _, p := range vendors[v] {
			prod := domain.CatalogProduct{Code: p.code, Description: p.description}
			if p.category != "" {
				prod.ProductCategory = []domain.ProductCategory{{ProductCategory: p.category}}
			}
			products = append(products, prod)
		}
		resp.Data.GetEnterpriseListing.Edges = append(resp.Data.GetEnterpriseListing.Edges, domain.EnterpriseEdge{
			Node: domain.EnterpriseNode{
				Code: v,
				Children: []domain.CatalogSection{{
					Code:     v + "-2025",
					Children: []domain.CatalogFolder{{Key: "Product", Children: products}},
				}},
			},
		})
	}
	return resp
}

var errEncoderDown = errors.New("encoder down")
