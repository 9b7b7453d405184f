package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rfpquote/backend/internal/domain"
	"github.com/rfpquote/backend/internal/observability"
	"github.com/rs/zerolog"
)

const (
	serviceName    = "rfpquote-backend"
	serviceVersion = "1.0.0"
)

// MatchService is the matching usecase consumed by the HTTP layer
type MatchService interface {
	Search(ctx context.Context, vendorCodes []string, query string, topK int) (*domain.MatchResult, error)
	CheckAvailability(ctx context.Context, vendorCodes []string, requirements []domain.RequirementItem) (*domain.AvailabilityReport, error)
	CatalogProducts(ctx context.Context, vendorCodes []string) (map[string][]domain.ProductSummary, error)
	Invalidate(ctx context.Context, vendorCodes []string)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service MatchService
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service MatchService, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  observability.Component(logger, "handler"),
	}
}

// SearchRequest is the body of POST /api/v1/match/search
type SearchRequest struct {
	Vendors []string `json:"vendors"`
	Query   string   `json:"query"`
	TopK    int      `json:"top_k"`
}

// RefreshRequest is the body of POST /api/v1/catalog/refresh
type RefreshRequest struct {
	Vendors []string `json:"vendors"`
}

// AvailabilityRequest is the body of POST /api/v1/match/availability
type AvailabilityRequest struct {
	Vendors      []string                 `json:"vendors"`
	Requirements []domain.RequirementItem `json:"requirements"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Search matches one free-text requirement against the vendor catalogs
func (h *Handler) Search(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.badRequest(c, "query is required")
		return
	}
	if req.TopK < 0 {
		h.badRequest(c, "top_k must not be negative")
		return
	}

	result, err := h.service.Search(c.Request.Context(), req.Vendors, req.Query, req.TopK)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CheckAvailability partitions RFP line items into per-vendor matches
func (h *Handler) CheckAvailability(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.Requirements) == 0 {
		h.badRequest(c, "requirements are required")
		return
	}

	report, err := h.service.CheckAvailability(c.Request.Context(), req.Vendors, req.Requirements)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// CatalogProducts lists the products of the requested vendors.
// Vendors are given as repeated or comma-separated ?vendor= parameters.
func (h *Handler) CatalogProducts(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var vendors []string
	for _, value := range c.QueryArray("vendor") {
		for _, code := range strings.Split(value, ",") {
			if code = strings.TrimSpace(code); code != "" {
				vendors = append(vendors, code)
			}
		}
	}

	products, err := h.service.CatalogProducts(c.Request.Context(), vendors)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vendors": products})
}

// RefreshCatalog forgets the index and cached results of a vendor set; the next request
// refetches its price list
func (h *Handler) RefreshCatalog(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	h.service.Invalidate(c.Request.Context(), req.Vendors)
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled", "vendors": req.Vendors})
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "matching service not configured"})
		return false
	}
	return true
}

func (h *Handler) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// writeError maps domain errors onto HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNoProducts):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status, message = http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrCatalogAPIFailure):
		status, message = http.StatusBadGateway, err.Error()
	case errors.Is(err, domain.ErrModelUnavailable):
		status, message = http.StatusServiceUnavailable, err.Error()
	}

	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Int("status", status).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": message})
}
