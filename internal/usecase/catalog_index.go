package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// IndexOptions holds the collaborators of an index build
type IndexOptions struct {
	Encoder domain.TextEncoder
	Cache   domain.EmbeddingCache // optional
	Logger  zerolog.Logger
}

// CatalogIndex is the immutable search structure for one vendor set. Entry i, lexical
// row i and embedding row i always describe the same product.
type CatalogIndex struct {
	entries    []domain.CatalogEntry
	lexical    *TFIDFMatrix
	embeddings *mat.Dense
}

// BuildCatalogIndex flattens a price list payload and indexes its products
func BuildCatalogIndex(ctx context.Context, payload *domain.PriceListResponse, opts IndexOptions) (*CatalogIndex, error) {
	return NewCatalogIndex(ctx, payload.Entries(), opts)
}

// NewCatalogIndex fits the lexical matrix over the entry descriptions and loads or
// computes their embeddings. A cached matrix is only trusted when its shape matches
// the current entries and encoder; a freshly computed one is saved best-effort.
func NewCatalogIndex(ctx context.Context, entries []domain.CatalogEntry, opts IndexOptions) (*CatalogIndex, error) {
	if len(entries) == 0 {
		return nil, domain.ErrNoProducts
	}
	if opts.Encoder == nil {
		return nil, fmt.Errorf("%w: no encoder configured", domain.ErrModelUnavailable)
	}

	logger := opts.Logger.With().Str("component", "catalog_index").Logger()

	descs := make([]string, len(entries))
	for i, e := range entries {
		descs[i] = e.Description
	}

	idx := &CatalogIndex{
		entries: append([]domain.CatalogEntry(nil), entries...),
		lexical: FitTFIDF(descs),
	}

	if opts.Cache != nil {
		idx.embeddings = loadEmbeddings(opts.Cache, len(descs), opts.Encoder.Dimension(), logger)
	}

	if idx.embeddings == nil {
		emb, err := opts.Encoder.Encode(ctx, descs)
		if err != nil {
			if errors.Is(err, domain.ErrModelUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}
		if rows, _ := emb.Dims(); rows != len(descs) {
			return nil, fmt.Errorf("%w: encoder returned %d rows for %d descriptions",
				domain.ErrModelUnavailable, rows, len(descs))
		}
		idx.embeddings = emb

		if opts.Cache != nil {
			if err := opts.Cache.Save(emb); err != nil {
				logger.Warn().Err(err).Msg("could not cache embeddings")
			}
		}
	}

	logger.Info().
		Int("products", len(entries)).
		Int("vocabulary", idx.lexical.VocabularySize()).
		Msg("catalog index built")

	return idx, nil
}

// loadEmbeddings returns the cached matrix, or nil for a cold or stale cache
func loadEmbeddings(cache domain.EmbeddingCache, rows, cols int, logger zerolog.Logger) *mat.Dense {
	m, err := cache.Load()
	if err != nil {
		logger.Debug().Err(err).Msg("embedding cache miss")
		return nil
	}

	r, c := m.Dims()
	if r != rows || c != cols {
		logger.Info().
			Int("cached_rows", r).Int("cached_cols", c).
			Int("rows", rows).Int("cols", cols).
			Msg("discarding stale embedding cache")
		return nil
	}
	return m
}

// Len returns the number of indexed products
func (x *CatalogIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// Entry returns product i
func (x *CatalogIndex) Entry(i int) domain.CatalogEntry {
	return x.entries[i]
}

// Entries returns a copy of the indexed products in index order
func (x *CatalogIndex) Entries() []domain.CatalogEntry {
	if x == nil {
		return nil
	}
	return append([]domain.CatalogEntry(nil), x.entries...)
}

// VendorCodes returns the distinct vendors of the index in first-seen order
func (x *CatalogIndex) VendorCodes() []string {
	if x == nil {
		return nil
	}
	seen := make(map[string]bool)
	var codes []string
	for _, e := range x.entries {
		if !seen[e.VendorCode] {
			seen[e.VendorCode] = true
			codes = append(codes, e.VendorCode)
		}
	}
	return codes
}

// LexicalRows returns the row count of the lexical matrix
func (x *CatalogIndex) LexicalRows() int {
	if x == nil {
		return 0
	}
	return x.lexical.Rows()
}

// EmbeddingRows returns the row count of the embedding matrix
func (x *CatalogIndex) EmbeddingRows() int {
	if x == nil || x.embeddings == nil {
		return 0
	}
	r, _ := x.embeddings.Dims()
	return r
}

// Embeddings returns a copy of the embedding matrix
func (x *CatalogIndex) Embeddings() *mat.Dense {
	if x == nil || x.embeddings == nil {
		return nil
	}
	return mat.DenseCopyOf(x.embeddings)
}
