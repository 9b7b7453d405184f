package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// allVendorsKey identifies the unfiltered catalog
const allVendorsKey = "*"

// AvailabilityServiceConfig holds configuration for the availability service
type AvailabilityServiceConfig struct {
	CacheTTL time.Duration
	Match    MatchConfig

	// EmbeddingCacheFor returns the embedding cache of a vendor set; nil disables caching
	EmbeddingCacheFor func(vendorSetKey string) domain.EmbeddingCache
}

// AvailabilityService matches RFP requirements against vendor catalogs. It keeps one
// immutable match engine per vendor set, built on first use.
type AvailabilityService struct {
	catalog  domain.CatalogClient
	encoder  domain.TextEncoder
	cache    domain.CacheRepository
	cacheTTL time.Duration
	config   AvailabilityServiceConfig

	mu      sync.RWMutex
	engines map[string]*MatchEngine
	builds  singleflight.Group

	logger zerolog.Logger
}

// NewAvailabilityService creates a new availability service with dependencies.
// cache may be nil to disable result caching.
func NewAvailabilityService(
	catalog domain.CatalogClient,
	encoder domain.TextEncoder,
	cache domain.CacheRepository,
	config AvailabilityServiceConfig,
	logger zerolog.Logger,
) *AvailabilityService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &AvailabilityService{
		catalog:  catalog,
		encoder:  encoder,
		cache:    cache,
		cacheTTL: cacheTTL,
		config:   config,
		engines:  make(map[string]*MatchEngine),
		logger:   logger.With().Str("component", "availability").Logger(),
	}
}

// VendorSetKey returns the canonical key of a vendor set: sorted, de-duplicated,
// comma-joined codes, or "*" for all vendors.
func VendorSetKey(vendorCodes []string) string {
	codes := normalizeVendorCodes(vendorCodes)
	if len(codes) == 0 {
		return allVendorsKey
	}
	return strings.Join(codes, ",")
}

func normalizeVendorCodes(vendorCodes []string) []string {
	seen := make(map[string]bool, len(vendorCodes))
	codes := make([]string, 0, len(vendorCodes))
	for _, c := range vendorCodes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Search matches a single free-text requirement against the vendor set
func (s *AvailabilityService) Search(ctx context.Context, vendorCodes []string, query string, topK int) (*domain.MatchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}

	engine, key, err := s.engineFor(ctx, vendorCodes)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, engine, key, query, topK)
}

// CheckAvailability runs one independent search per requirement and partitions the
// accepted matches by vendor. Each requirement is accepted by at most one product.
func (s *AvailabilityService) CheckAvailability(
	ctx context.Context,
	vendorCodes []string,
	requirements []domain.RequirementItem,
) (*domain.AvailabilityReport, error) {
	if len(requirements) == 0 {
		return nil, fmt.Errorf("%w: at least one requirement is required", domain.ErrInvalidRequest)
	}

	engine, key, err := s.engineFor(ctx, vendorCodes)
	if err != nil {
		return nil, err
	}

	report := &domain.AvailabilityReport{
		Availability: make(map[string][]domain.ProductMatch),
		NotAvailable: []string{},
	}

	for _, req := range requirements {
		if strings.TrimSpace(req.Description) == "" {
			report.NotAvailable = append(report.NotAvailable, req.Description)
			continue
		}

		result, err := s.search(ctx, engine, key, req.Description, 0)
		if err != nil {
			return nil, err
		}
		if !result.Available() {
			report.NotAvailable = append(report.NotAvailable, req.Description)
			continue
		}

		report.Availability[result.VendorCode] = append(report.Availability[result.VendorCode], domain.ProductMatch{
			ProductCode:            result.ProductCode,
			RequirementDescription: req.Description,
			Qty:                    req.Qty,
			Similarity:             result.Similarity,
			DimensionsMatch:        DimensionsMatch(req.Description, result.Description),
		})
	}

	vendors := normalizeVendorCodes(vendorCodes)
	if len(vendors) == 0 {
		vendors = engine.Index().VendorCodes()
	}
	for _, v := range vendors {
		if _, ok := report.Availability[v]; !ok {
			report.UnmatchedVendors = append(report.UnmatchedVendors, v)
		}
	}

	s.logger.Info().
		Str("vendors", key).
		Int("requirements", len(requirements)).
		Int("not_available", len(report.NotAvailable)).
		Msg("availability checked")

	return report, nil
}

// CatalogProducts lists each vendor's products with dimensions stripped from the
// descriptions. Vendors without usable products are omitted.
func (s *AvailabilityService) CatalogProducts(ctx context.Context, vendorCodes []string) (map[string][]domain.ProductSummary, error) {
	engine, _, err := s.engineFor(ctx, vendorCodes)
	if err != nil {
		return nil, err
	}

	products := make(map[string][]domain.ProductSummary)
	for _, e := range engine.Index().Entries() {
		if e.ProductCode == "" {
			continue
		}
		products[e.VendorCode] = append(products[e.VendorCode], domain.ProductSummary{
			ProductCode: e.ProductCode,
			Description: CleanDescription(e.Description),
		})
	}
	return products, nil
}

// Invalidate drops the engine of a vendor set so the next call rebuilds it from a fresh
// price list. Cached results of the set are evicted when the cache supports prefix deletes.
func (s *AvailabilityService) Invalidate(ctx context.Context, vendorCodes []string) {
	key := VendorSetKey(vendorCodes)
	s.mu.Lock()
	delete(s.engines, key)
	s.mu.Unlock()

	deleter, ok := s.cache.(domain.PrefixDeleter)
	if !ok {
		return
	}
	removed, err := deleter.DeletePrefix(ctx, s.cacheKeyPrefix(key))
	if err != nil {
		s.logger.Warn().Err(err).Str("vendors", key).Msg("failed to evict cached results")
		return
	}
	s.logger.Info().Str("vendors", key).Int("evicted", removed).Msg("vendor set invalidated")
}

// search consults the result cache before running the engine
func (s *AvailabilityService) search(ctx context.Context, engine *MatchEngine, vendorKey, query string, topK int) (*domain.MatchResult, error) {
	if topK <= 0 {
		topK = engine.TopK()
	}

	cacheKey := s.generateCacheKey(vendorKey, topK, query)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		// the key is case and whitespace insensitive; echo this caller's text
		result := *cached
		if result.Available() {
			result.ReqDescription = query
		} else {
			result.Query = query
		}
		return &result, nil
	}

	result, err := engine.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if err := s.setInCache(ctx, cacheKey, result); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache match result")
	}
	return result, nil
}

// engineFor returns the engine of a vendor set, building its index at most once
// even under concurrent callers
func (s *AvailabilityService) engineFor(ctx context.Context, vendorCodes []string) (*MatchEngine, string, error) {
	key := VendorSetKey(vendorCodes)

	if engine := s.cachedEngine(key); engine != nil {
		return engine, key, nil
	}

	// The build is shared by every caller of the vendor set, so it must outlive
	// any single caller's cancellation.
	buildCtx := context.WithoutCancel(ctx)
	ch := s.builds.DoChan(key, func() (interface{}, error) {
		if engine := s.cachedEngine(key); engine != nil {
			return engine, nil
		}
		ctx := buildCtx

		start := time.Now()
		payload, err := s.catalog.FetchPriceList(ctx, normalizeVendorCodes(vendorCodes))
		if err != nil {
			if errors.Is(err, domain.ErrCatalogAPIFailure) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err)
		}

		opts := IndexOptions{Encoder: s.encoder, Logger: s.logger}
		if s.config.EmbeddingCacheFor != nil {
			opts.Cache = s.config.EmbeddingCacheFor(key)
		}

		index, err := BuildCatalogIndex(ctx, payload, opts)
		if err != nil {
			s.logger.Error().Err(err).Str("vendors", key).Msg("failed to build catalog index")
			return nil, err
		}

		engine := NewMatchEngine(index, s.encoder, s.config.Match, s.logger)

		s.mu.Lock()
		s.engines[key] = engine
		s.mu.Unlock()

		s.logger.Info().
			Str("vendors", key).
			Int("products", index.Len()).
			Dur("duration", time.Since(start)).
			Msg("match engine ready")

		return engine, nil
	})

	select {
	case <-ctx.Done():
		return nil, key, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, key, res.Err
		}
		return res.Val.(*MatchEngine), key, nil
	}
}

func (s *AvailabilityService) cachedEngine(key string) *MatchEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engines[key]
}

// generateCacheKey creates the result cache key.
// Format: "match:{vendor_set}:{top_k}:{normalized_query}"
func (s *AvailabilityService) generateCacheKey(vendorKey string, topK int, query string) string {
	return fmt.Sprintf("%s%d:%s", s.cacheKeyPrefix(vendorKey), topK, normalizeQuery(query))
}

func (s *AvailabilityService) cacheKeyPrefix(vendorKey string) string {
	return "match:" + vendorKey + ":"
}

// getFromCache retrieves a match result from cache
func (s *AvailabilityService) getFromCache(ctx context.Context, key string) (*domain.MatchResult, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if result, ok := value.(*domain.MatchResult); ok {
		return result, nil
	}

	// Values stored through JSON come back as maps
	data, err := json.Marshal(value)
	if err != nil {
		return nil, domain.ErrCacheMiss
	}
	var result domain.MatchResult
	if err := json.Unmarshal(data, &result); err != nil || result.Status == "" {
		return nil, domain.ErrCacheMiss
	}
	return &result, nil
}

// setInCache stores a match result in cache
func (s *AvailabilityService) setInCache(ctx context.Context, key string, result *domain.MatchResult) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, result, s.cacheTTL)
}
