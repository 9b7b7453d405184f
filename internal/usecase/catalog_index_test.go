package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rfpquote/backend/internal/infrastructure/embedcache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleCatalog() *domain.PriceListResponse {
	return buildPayload(map[string][]testProduct{
		"A": {
			{"T1", `Conference Table 28-32"W x 60"D x 29"H`, "Conference Tables"},
			{"C1", "Task Chair, mesh back", "Seating"},
			{"X1", "   ", "Seating"},
		},
		"B": {
			{"F1", "Lateral File 2 drawer", "Storage"},
		},
		"EMPTY": {
			{"Z1", "", ""},
		},
	}, "A", "B", "EMPTY")
}

func TestBuildCatalogIndex_RowsAligned(t *testing.T) {
	enc := newFakeEncoder(32)
	idx, err := BuildCatalogIndex(context.Background(), sampleCatalog(), IndexOptions{Encoder: enc, Logger: zerolog.Nop()})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.LexicalRows())
	assert.Equal(t, 3, idx.EmbeddingRows())
	assert.Equal(t, []string{"A", "B"}, idx.VendorCodes())

	entries := idx.Entries()
	assert.Equal(t, "T1", entries[0].ProductCode)
	assert.Equal(t, "C1", entries[1].ProductCode)
	assert.Equal(t, "F1", entries[2].ProductCode)
	assert.Equal(t, "Storage", idx.Entry(2).Category)

	// row i of the embeddings is the encoding of description i
	single, err := enc.Encode(context.Background(), []string{entries[1].Description})
	require.NoError(t, err)
	assert.Equal(t, single.RawRowView(0), idx.Embeddings().RawRowView(1))
}

func TestBuildCatalogIndex_NoProducts(t *testing.T) {
	empty := buildPayload(map[string][]testProduct{"A": {{"X", " ", ""}}}, "A")

	for name, payload := range map[string]*domain.PriceListResponse{
		"nil payload":        nil,
		"no edges":           {},
		"blank descriptions": empty,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := BuildCatalogIndex(context.Background(), payload, IndexOptions{Encoder: newFakeEncoder(8)})
			assert.ErrorIs(t, err, domain.ErrNoProducts)
		})
	}
}

func TestNewCatalogIndex_EncoderErrors(t *testing.T) {
	entries := []domain.CatalogEntry{{VendorCode: "A", ProductCode: "T1", Description: "Conference Table"}}

	_, err := NewCatalogIndex(context.Background(), entries, IndexOptions{})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	enc := newFakeEncoder(8)
	enc.err = errEncoderDown
	_, err = NewCatalogIndex(context.Background(), entries, IndexOptions{Encoder: enc})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "encoder down")
}

func TestNewCatalogIndex_CacheRoundTripSkipsEncoding(t *testing.T) {
	ctx := context.Background()
	cache := &memoryEmbeddingCache{}
	enc := newFakeEncoder(16)
	opts := IndexOptions{Encoder: enc, Cache: cache, Logger: zerolog.Nop()}

	first, err := BuildCatalogIndex(ctx, sampleCatalog(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, enc.callCount())
	assert.Equal(t, 1, cache.saves)

	second, err := BuildCatalogIndex(ctx, sampleCatalog(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, enc.callCount(), "cached embeddings must not be recomputed")
	assert.Equal(t, 1, cache.saves)
	assert.True(t, mat.Equal(first.Embeddings(), second.Embeddings()))
}

func TestNewCatalogIndex_StaleCacheIsRecomputed(t *testing.T) {
	testCases := []struct {
		name   string
		cached *mat.Dense
	}{
		{"row count mismatch", mat.NewDense(2, 16, nil)},
		{"width mismatch", mat.NewDense(3, 8, nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cache := &memoryEmbeddingCache{m: tc.cached}
			enc := newFakeEncoder(16)

			idx, err := BuildCatalogIndex(context.Background(), sampleCatalog(), IndexOptions{Encoder: enc, Cache: cache})
			require.NoError(t, err)

			assert.Equal(t, 1, enc.callCount())
			assert.Equal(t, 1, cache.saves)
			r, c := idx.Embeddings().Dims()
			assert.Equal(t, 3, r)
			assert.Equal(t, 16, c)
		})
	}
}

func TestNewCatalogIndex_SaveFailureIsNotFatal(t *testing.T) {
	cache := &memoryEmbeddingCache{saveErr: errors.New("disk full")}

	idx, err := BuildCatalogIndex(context.Background(), sampleCatalog(), IndexOptions{Encoder: newFakeEncoder(16), Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.EmbeddingRows())
}

func TestNewCatalogIndex_FileCache(t *testing.T) {
	ctx := context.Background()
	cache := embedcache.ForVendorSet(t.TempDir(), "A,B")
	enc := newFakeEncoder(16)
	opts := IndexOptions{Encoder: enc, Cache: cache}

	first, err := BuildCatalogIndex(ctx, sampleCatalog(), opts)
	require.NoError(t, err)

	second, err := BuildCatalogIndex(ctx, sampleCatalog(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, enc.callCount())
	assert.True(t, mat.EqualApprox(first.Embeddings(), second.Embeddings(), 1e-12))
}

func TestCatalogIndex_NilSafe(t *testing.T) {
	var idx *CatalogIndex
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.LexicalRows())
	assert.Equal(t, 0, idx.EmbeddingRows())
	assert.Nil(t, idx.Entries())
	assert.Nil(t, idx.Embeddings())
}
