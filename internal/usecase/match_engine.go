package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Matching defaults
const (
	DefaultThreshold = 0.4
	DefaultTopK      = 50

	// cosineEpsilon keeps the embedding cosine finite for zero vectors
	cosineEpsilon = 1e-8
)

// reasonNoProducts is reported when the index has nothing to rank
const reasonNoProducts = "No products found"

// MatchConfig holds configuration for the match engine
type MatchConfig struct {
	Threshold          *float64 // nil selects DefaultThreshold; zero and negative values are honoured
	TopK               int
	EnableDebugLogging bool
}

// MatchEngine ranks the products of one catalog index against free-text requirements.
// It is read-only after construction and safe for concurrent use.
type MatchEngine struct {
	index     *CatalogIndex
	encoder   domain.TextEncoder
	scorers   []scorer
	threshold float64
	topK      int
	debug     bool
	logger    zerolog.Logger
}

// rankedCandidate is the best-scoring candidate of a search
type rankedCandidate struct {
	row          int
	score        float64
	embeddingSim float64
}

// NewMatchEngine creates a match engine with the given configuration
func NewMatchEngine(index *CatalogIndex, encoder domain.TextEncoder, config MatchConfig, logger zerolog.Logger) *MatchEngine {
	threshold := DefaultThreshold
	if t := config.Threshold; t != nil && !math.IsNaN(*t) {
		threshold = *t
	}

	topK := config.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &MatchEngine{
		index:     index,
		encoder:   encoder,
		scorers:   defaultScorers,
		threshold: threshold,
		topK:      topK,
		debug:     config.EnableDebugLogging,
		logger:    logger.With().Str("component", "match_engine").Logger(),
	}
}

// Threshold returns the acceptance threshold
func (e *MatchEngine) Threshold() float64 {
	return e.threshold
}

// TopK returns the default candidate count
func (e *MatchEngine) TopK() int {
	return e.topK
}

// Index returns the catalog index the engine searches
func (e *MatchEngine) Index() *CatalogIndex {
	return e.index
}

// Search finds the best product for query among the topK lexically closest products
// (the engine default when topK <= 0). A best score at or above the threshold is
// available; anything else, including an empty catalog, is a not_available result.
// Only an encoder failure is returned as an error.
func (e *MatchEngine) Search(ctx context.Context, query string, topK int) (*domain.MatchResult, error) {
	best, err := e.rank(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if best == nil {
		return &domain.MatchResult{
			Status: domain.StatusNotAvailable,
			Query:  query,
			Reason: reasonNoProducts,
		}, nil
	}

	score := roundScore(best.score)
	if best.score >= e.threshold {
		entry := e.index.Entry(best.row)
		if e.debug {
			e.logger.Debug().
				Str("query", query).
				Str("vendor", entry.VendorCode).
				Str("product", entry.ProductCode).
				Float64("score", best.score).
				Msg("best match")
		}
		return &domain.MatchResult{
			Status:         domain.StatusAvailable,
			VendorCode:     entry.VendorCode,
			ProductCode:    entry.ProductCode,
			Description:    entry.Description,
			Category:       entry.Category,
			ReqDescription: query,
			Similarity:     score,
		}, nil
	}

	return &domain.MatchResult{
		Status: domain.StatusNotAvailable,
		Query:  query,
		Reason: fmt.Sprintf("No strong match found (best score=%s)", strconv.FormatFloat(score, 'f', -1, 64)),
	}, nil
}

// rank returns the highest-scoring candidate, or nil when there is nothing to rank.
// Ties keep the first candidate in ascending lexical order.
func (e *MatchEngine) rank(ctx context.Context, query string, topK int) (*rankedCandidate, error) {
	if e.index.Len() == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = e.topK
	}

	lexical := e.index.lexical.CosineSimilarities(query)
	top := topKIndices(lexical, topK)
	if len(top) == 0 {
		return nil, nil
	}

	qm, err := e.encoder.Encode(ctx, []string{query})
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	qv := qm.RawRowView(0)
	if _, cols := e.index.embeddings.Dims(); len(qv) != cols {
		return nil, fmt.Errorf("%w: query embedding width %d, catalog width %d",
			domain.ErrModelUnavailable, len(qv), cols)
	}
	qNorm := floats.Norm(qv, 2)

	var best *rankedCandidate
	for _, row := range top {
		emb := e.index.embeddings.RawRowView(row)
		sim := floats.Dot(emb, qv) / (floats.Norm(emb, 2)*qNorm + cosineEpsilon)

		c := candidate{entry: e.index.Entry(row), embeddingSim: sim}
		score := scoreCandidate(e.scorers, query, c)

		if e.debug {
			e.logger.Debug().
				Str("query", query).
				Str("product", c.entry.ProductCode).
				Str("description", c.entry.Description).
				Float64("lexical", lexical[row]).
				Float64("embedding", sim).
				Float64("score", score).
				Msg("candidate scored")
		}

		if best == nil || score > best.score {
			best = &rankedCandidate{row: row, score: score, embeddingSim: sim}
		}
	}

	return best, nil
}

// roundScore rounds to 3 decimals
func roundScore(v float64) float64 {
	return math.Round(v*1000) / 1000
}
