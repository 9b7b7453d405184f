package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rfpquote/backend/internal/domain"
)

// FileSource serves a price list payload saved to disk, for offline matching
type FileSource struct {
	path string
}

// NewFileSource creates a catalog source backed by a JSON payload file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchPriceList loads the payload file and filters it to vendorCodes
func (s *FileSource) FetchPriceList(ctx context.Context, vendorCodes []string) (*domain.PriceListResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := LoadPayloadFile(s.path)
	if err != nil {
		return nil, err
	}
	return FilterVendors(payload, vendorCodes), nil
}

// LoadPayloadFile decodes a getEnterpriseListing response saved as JSON
func LoadPayloadFile(path string) (*domain.PriceListResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog payload: %w", err)
	}

	var payload domain.PriceListResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode catalog payload %s: %w", path, err)
	}
	return &payload, nil
}
