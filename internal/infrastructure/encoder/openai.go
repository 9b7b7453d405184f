package encoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"gonum.org/v1/gonum/mat"
)

const defaultOpenAIBatchSize = 256

// OpenAIConfig holds OpenAI embedding configuration
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	BatchSize int
}

// OpenAI embeds texts with the OpenAI embeddings API
type OpenAI struct {
	client    *openai.Client
	model     string
	dim       int
	batchSize int

	// requestDim is sent as the "dimensions" request field; 0 keeps the model's native width
	requestDim int
}

// NewOpenAI creates an OpenAI encoder
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	native := 1536
	if model == string(openai.LargeEmbedding3) {
		native = 3072
	}

	dim, requestDim := native, 0
	if cfg.Dimension > 0 && cfg.Dimension != native {
		if !supportsDimensions(model) {
			return nil, fmt.Errorf("model %s cannot be shortened to %d dimensions", model, cfg.Dimension)
		}
		dim, requestDim = cfg.Dimension, cfg.Dimension
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultOpenAIBatchSize
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dim:        dim,
		batchSize:  batch,
		requestDim: requestDim,
	}, nil
}

// Encode embeds texts in batches; row i of the result belongs to texts[i]
func (e *OpenAI) Encode(ctx context.Context, texts []string) (*mat.Dense, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to encode")
	}

	out := mat.NewDense(len(texts), e.dim, nil)
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model:      openai.EmbeddingModel(e.model),
			Input:      texts[start:end],
			Dimensions: e.requestDim,
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), end-start)
		}

		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= end-start {
				return nil, fmt.Errorf("OpenAI returned out-of-range index %d", d.Index)
			}
			if len(d.Embedding) != e.dim {
				return nil, fmt.Errorf("OpenAI returned width %d, expected %d", len(d.Embedding), e.dim)
			}
			row := out.RawRowView(start + d.Index)
			for j, v := range d.Embedding {
				row[j] = float64(v)
			}
			l2normalize(row)
		}
	}

	return out, nil
}

// Dimension returns the embedding width
func (e *OpenAI) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *OpenAI) ModelInfo() string {
	return "openai-" + e.model
}

// supportsDimensions reports whether the model accepts the "dimensions" request field
func supportsDimensions(model string) bool {
	return strings.HasPrefix(model, "text-embedding-3")
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] *= inv
	}
}
