package catalogapi

import "github.com/rfpquote/backend/internal/domain"

// FilterVendors keeps only the edges whose vendor code is in codes.
// An empty codes list keeps every vendor.
func FilterVendors(payload *domain.PriceListResponse, codes []string) *domain.PriceListResponse {
	if payload == nil || len(codes) == 0 {
		return payload
	}

	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}

	filtered := *payload
	filtered.Data.GetEnterpriseListing.Edges = nil
	for _, edge := range payload.Data.GetEnterpriseListing.Edges {
		if wanted[edge.Node.Code] {
			filtered.Data.GetEnterpriseListing.Edges = append(filtered.Data.GetEnterpriseListing.Edges, edge)
		}
	}
	return &filtered
}

// VendorCodes lists the vendor codes present in the payload, in payload order
func VendorCodes(payload *domain.PriceListResponse) []string {
	if payload == nil {
		return nil
	}
	codes := make([]string, 0, len(payload.Data.GetEnterpriseListing.Edges))
	for _, edge := range payload.Data.GetEnterpriseListing.Edges {
		codes = append(codes, edge.Node.Code)
	}
	return codes
}
