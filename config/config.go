package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Catalog        CatalogConfig        `mapstructure:"catalog"`
	Encoder        EncoderConfig        `mapstructure:"encoder"`
	Matching       MatchingConfig       `mapstructure:"matching"`
	Cache          CacheConfig          `mapstructure:"cache"`
	EmbeddingCache EmbeddingCacheConfig `mapstructure:"embedding_cache"`
	Log            LogConfig            `mapstructure:"log"`
	RateLimit      RateLimitConfig      `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds vendor price list API configuration.
// PayloadFile serves a saved price list instead of calling the API.
type CatalogConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	PriceListURL      string        `mapstructure:"price_list_url"`
	PayloadFile       string        `mapstructure:"payload_file"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// EncoderConfig selects the sentence encoder
type EncoderConfig struct {
	Provider  string `mapstructure:"provider"` // "hashing" or "openai"
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Dimension int    `mapstructure:"dimension"`
}

// MatchingConfig holds match engine configuration
type MatchingConfig struct {
	Threshold          float64 `mapstructure:"threshold"`
	TopK               int     `mapstructure:"top_k"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// CacheConfig holds match result cache configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// EmbeddingCacheConfig holds on-disk embedding cache configuration
type EmbeddingCacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	return LoadWith(nil)
}

// LoadWith is Load with explicit key overrides (e.g. "catalog.payload_file") taking
// precedence over every other source. The CLI uses it to apply its flags.
func LoadWith(overrides map[string]interface{}) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rfpquote/")

	// Environment variable settings: RFPQUOTE_CATALOG_API_KEY -> catalog.api_key
	v.SetEnvPrefix("RFPQUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	for key, value := range overrides {
		v.Set(key, value)
	}

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env if present. Variables already set in the environment win.
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key gets a default so that
// AutomaticEnv can populate it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Catalog API defaults
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.price_list_url", "")
	v.SetDefault("catalog.payload_file", "")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.requests_per_second", 2)
	v.SetDefault("catalog.burst", 5)

	// Encoder defaults
	v.SetDefault("encoder.provider", "hashing")
	v.SetDefault("encoder.model", "text-embedding-3-small")
	v.SetDefault("encoder.api_key", "")
	v.SetDefault("encoder.base_url", "")
	v.SetDefault("encoder.dimension", 0) // 0 lets the provider choose its native width

	// Matching defaults
	v.SetDefault("matching.threshold", 0.4)
	v.SetDefault("matching.top_k", 50)
	v.SetDefault("matching.enable_debug_logging", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")

	// Embedding cache defaults
	v.SetDefault("embedding_cache.enabled", true)
	v.SetDefault("embedding_cache.dir", ".cache/embeddings")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.PriceListURL == "" && config.Catalog.PayloadFile == "" {
		return fmt.Errorf("catalog source is required (set RFPQUOTE_CATALOG_PRICE_LIST_URL or RFPQUOTE_CATALOG_PAYLOAD_FILE)")
	}

	if config.Catalog.PriceListURL != "" && config.Catalog.APIKey == "" {
		return fmt.Errorf("catalog API key is required (set RFPQUOTE_CATALOG_API_KEY)")
	}

	if config.Encoder.Provider != "hashing" && config.Encoder.Provider != "openai" {
		return fmt.Errorf("encoder provider must be 'hashing' or 'openai', got: %s", config.Encoder.Provider)
	}

	if config.Encoder.Provider == "openai" && config.Encoder.APIKey == "" {
		return fmt.Errorf("encoder API key is required for provider 'openai' (set RFPQUOTE_ENCODER_API_KEY)")
	}

	if config.Encoder.Dimension < 0 {
		return fmt.Errorf("encoder dimension must not be negative, got: %d", config.Encoder.Dimension)
	}

	if config.Matching.TopK <= 0 {
		return fmt.Errorf("matching top_k must be positive, got: %d", config.Matching.TopK)
	}

	if math.IsNaN(config.Matching.Threshold) || math.IsInf(config.Matching.Threshold, 0) {
		return fmt.Errorf("matching threshold must be finite")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.EmbeddingCache.Enabled && config.EmbeddingCache.Dir == "" {
		return fmt.Errorf("embedding cache dir is required when the embedding cache is enabled")
	}

	return nil
}
