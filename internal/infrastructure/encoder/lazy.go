package encoder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Constructor loads an encoder
type Constructor func() (domain.TextEncoder, error)

// Config selects and configures an encoder
type Config struct {
	Provider  string // "hashing" or "openai"
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
}

// NewConstructor returns the constructor for the configured provider
func NewConstructor(cfg Config) Constructor {
	return func() (domain.TextEncoder, error) {
		switch cfg.Provider {
		case "", "hashing":
			return NewHashing(cfg.Dimension), nil
		case "openai":
			return NewOpenAI(OpenAIConfig{
				APIKey:    cfg.APIKey,
				Model:     cfg.Model,
				BaseURL:   cfg.BaseURL,
				Dimension: cfg.Dimension,
			})
		default:
			return nil, fmt.Errorf("unknown encoder provider %q", cfg.Provider)
		}
	}
}

// Lazy defers loading an encoder until first use and loads it at most once.
// A failed load is remembered: every later call reports domain.ErrModelUnavailable.
type Lazy struct {
	once   sync.Once
	build  Constructor
	enc    domain.TextEncoder
	err    error
	logger zerolog.Logger
}

// NewLazy wraps build
func NewLazy(build Constructor, logger zerolog.Logger) *Lazy {
	return &Lazy{
		build:  build,
		logger: logger.With().Str("component", "encoder").Logger(),
	}
}

func (l *Lazy) load() (domain.TextEncoder, error) {
	l.once.Do(func() {
		enc, err := l.build()
		if err == nil && enc == nil {
			err = errors.New("constructor returned no encoder")
		}
		if err != nil {
			l.err = fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
			l.logger.Error().Err(err).Msg("failed to load text encoder")
			return
		}
		l.enc = enc
		l.logger.Info().Str("model", enc.ModelInfo()).Int("dimension", enc.Dimension()).Msg("text encoder loaded")
	})
	return l.enc, l.err
}

// Encode loads the encoder if needed and embeds texts
func (l *Lazy) Encode(ctx context.Context, texts []string) (*mat.Dense, error) {
	enc, err := l.load()
	if err != nil {
		return nil, err
	}

	m, err := enc.Encode(ctx, texts)
	if err != nil && !errors.Is(err, domain.ErrModelUnavailable) {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	return m, err
}

// Dimension returns the encoder width, or 0 when it cannot be loaded
func (l *Lazy) Dimension() int {
	enc, err := l.load()
	if err != nil {
		return 0
	}
	return enc.Dimension()
}

// ModelInfo returns model information
func (l *Lazy) ModelInfo() string {
	enc, err := l.load()
	if err != nil {
		return "unavailable"
	}
	return enc.ModelInfo()
}
