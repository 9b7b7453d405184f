package domain

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PrefixDeleter is implemented by caches that can evict every key sharing a prefix
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// CatalogClient fetches vendor price lists, optionally filtered to a set of vendor codes
type CatalogClient interface {
	FetchPriceList(ctx context.Context, vendorCodes []string) (*PriceListResponse, error)
}

// TextEncoder turns texts into a dense matrix, one row per text
type TextEncoder interface {
	Encode(ctx context.Context, texts []string) (*mat.Dense, error)
	Dimension() int
	ModelInfo() string
}

// EmbeddingCache persists a catalog embedding matrix between runs.
// Load returns an error wrapping ErrCacheMiss for every cold-cache condition.
type EmbeddingCache interface {
	Load() (*mat.Dense, error)
	Save(m *mat.Dense) error
}
