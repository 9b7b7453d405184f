// Package bootstrap wires configuration into a ready availability service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rfpquote/backend/config"
	"github.com/rfpquote/backend/internal/domain"
	"github.com/rfpquote/backend/internal/infrastructure/cache"
	"github.com/rfpquote/backend/internal/infrastructure/catalogapi"
	"github.com/rfpquote/backend/internal/infrastructure/embedcache"
	"github.com/rfpquote/backend/internal/infrastructure/encoder"
	"github.com/rfpquote/backend/internal/usecase"
	"github.com/rs/zerolog"
)

// Closer releases resources held by the wired dependencies
type Closer func() error

// NewCatalogClient returns the price list source: a saved payload file when one is
// configured, otherwise the vendor API.
func NewCatalogClient(cfg config.CatalogConfig, logger zerolog.Logger) domain.CatalogClient {
	if cfg.PayloadFile != "" {
		logger.Info().Str("payload_file", cfg.PayloadFile).Msg("serving catalog from payload file")
		return catalogapi.NewFileSource(cfg.PayloadFile)
	}
	return catalogapi.NewClient(catalogapi.Config{
		APIKey:            cfg.APIKey,
		PriceListURL:      cfg.PriceListURL,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger)
}

// NewResultCache returns the configured match result cache
func NewResultCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, Closer, error) {
	switch cfg.Type {
	case "", "memory":
		c := cache.NewMemoryCache(0)
		return c, c.Close, nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL, "")
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// NewEncoder returns the lazily loaded sentence encoder
func NewEncoder(cfg config.EncoderConfig, logger zerolog.Logger) *encoder.Lazy {
	return encoder.NewLazy(encoder.NewConstructor(encoder.Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Dimension: cfg.Dimension,
	}), logger)
}

// EmbeddingCacheFor returns the per vendor set embedding cache factory, or nil when disabled
func EmbeddingCacheFor(cfg config.EmbeddingCacheConfig) func(string) domain.EmbeddingCache {
	if !cfg.Enabled || cfg.Dir == "" {
		return nil
	}
	return func(vendorSetKey string) domain.EmbeddingCache {
		return embedcache.ForVendorSet(cfg.Dir, vendorSetKey)
	}
}

// NewAvailabilityService wires every dependency of the availability service
func NewAvailabilityService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*usecase.AvailabilityService, Closer, error) {
	resultCache, closeCache, err := NewResultCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	threshold := cfg.Matching.Threshold
	service := usecase.NewAvailabilityService(
		NewCatalogClient(cfg.Catalog, logger),
		NewEncoder(cfg.Encoder, logger),
		resultCache,
		usecase.AvailabilityServiceConfig{
			CacheTTL: cfg.Cache.TTL,
			Match: usecase.MatchConfig{
				Threshold:          &threshold,
				TopK:               cfg.Matching.TopK,
				EnableDebugLogging: cfg.Matching.EnableDebugLogging,
			},
			EmbeddingCacheFor: EmbeddingCacheFor(cfg.EmbeddingCache),
		},
		logger,
	)

	return service, closeCache, nil
}
