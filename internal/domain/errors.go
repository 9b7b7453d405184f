package domain

import "errors"

var (
	// ErrNoProducts is returned when a vendor set yields no product with a usable description
	ErrNoProducts = errors.New("no product descriptions found in catalog")

	// ErrModelUnavailable is returned when the text encoder cannot be loaded or fails to encode
	ErrModelUnavailable = errors.New("text encoder unavailable")

	// ErrCacheMiss is returned when data is not found in cache (or cannot be decoded)
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCatalogAPIFailure is returned when the vendor price list API request fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
