package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rfpquote/backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// priceListQuery selects the product fields the matcher needs from getEnterpriseListing.
// %s is replaced by an optional "(filter: ...)" argument.
const priceListQuery = `{
  getEnterpriseListing%s {
    edges {
      node {
        code
        description
        name
        children {
          ... on object_Catalog {
            code
            description
            name
            children {
              ... on object_folder {
                key
                children {
                  ... on object_Product {
                    code
                    description
                    productCategory {
                      ... on fieldcollection_productCategory {
                        productCategory
                      }
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// Config holds vendor API client configuration
type Config struct {
	APIKey            string
	PriceListURL      string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
}

// Client fetches vendor price lists from the GraphQL catalog API
type Client struct {
	httpClient   *http.Client
	apiKey       string
	priceListURL string
	rateLimiter  *rate.Limiter
	maxRetries   int
	backoff      func(attempt int) time.Duration
	logger       zerolog.Logger
}

// NewClient creates a new vendor catalog API client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		apiKey:       cfg.APIKey,
		priceListURL: cfg.PriceListURL,
		rateLimiter:  rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries:   retries,
		backoff:      exponentialBackoff,
		logger:       logger.With().Str("component", "catalogapi").Logger(),
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// buildPriceListQuery renders the GraphQL query, filtered to vendorCodes when given
func buildPriceListQuery(vendorCodes []string) (string, error) {
	if len(vendorCodes) == 0 {
		return fmt.Sprintf(priceListQuery, ""), nil
	}

	clauses := make([]map[string]string, 0, len(vendorCodes))
	for _, code := range vendorCodes {
		clauses = append(clauses, map[string]string{"code": code})
	}
	filter, err := json.Marshal(map[string]interface{}{"$or": clauses})
	if err != nil {
		return "", fmt.Errorf("encode vendor filter: %w", err)
	}

	return fmt.Sprintf(priceListQuery, "(filter: "+strconv.Quote(string(filter))+")"), nil
}

// doRequest posts a GraphQL query with the API key header
func (c *Client) doRequest(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.priceListURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "RFPQuote/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err)
	}
	return resp, nil
}

// FetchPriceList retrieves the product catalog of the given vendors (all vendors when empty)
func (c *Client) FetchPriceList(ctx context.Context, vendorCodes []string) (*domain.PriceListResponse, error) {
	if c.priceListURL == "" {
		return nil, fmt.Errorf("%w: price list URL not configured", domain.ErrCatalogAPIFailure)
	}

	query, err := buildPriceListQuery(vendorCodes)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	c.logger.Debug().Strs("vendors", vendorCodes).Msg("fetching price list")

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, body)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("price list request failed")
			lastErr = err
			if werr := c.wait(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: read body: %v", domain.ErrCatalogAPIFailure, readErr)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogAPIFailure, resp.StatusCode)
			c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).
				Str("body", truncate(string(respBody), 512)).Msg("price list API error")
			if !retryableStatus(resp.StatusCode) {
				return nil, lastErr
			}
			if werr := c.wait(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}

		var payload domain.PriceListResponse
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", domain.ErrCatalogAPIFailure, err)
		}
		if len(payload.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrCatalogAPIFailure, joinGraphQLErrors(payload.Errors))
		}

		c.logger.Info().
			Strs("vendors", VendorCodes(&payload)).
			Msg("price list fetched")
		return &payload, nil
	}

	return nil, lastErr
}

// wait sleeps for the backoff of attempt unless ctx ends first
func (c *Client) wait(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.backoff(attempt)):
		return nil
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func joinGraphQLErrors(errs []domain.GraphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
