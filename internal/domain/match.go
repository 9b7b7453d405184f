package domain

// MatchStatus is the verdict of a single requirement lookup
type MatchStatus string

const (
	StatusAvailable    MatchStatus = "available"
	StatusNotAvailable MatchStatus = "not_available"
)

// RequirementItem is one RFP line item
type RequirementItem struct {
	Description string `json:"description"`
	Qty         int    `json:"qty"`
}

// MatchResult is the outcome of a single search.
// Available results carry the vendor/product fields; not available ones carry Query and Reason.
type MatchResult struct {
	Status         MatchStatus `json:"status"`
	VendorCode     string      `json:"vendor_code,omitempty"`
	ProductCode    string      `json:"product_code,omitempty"`
	Description    string      `json:"description,omitempty"`
	Category       string      `json:"category,omitempty"`
	ReqDescription string      `json:"req_description,omitempty"`
	Similarity     float64     `json:"similarity,omitempty"`
	Query          string      `json:"query,omitempty"`
	Reason         string      `json:"reason,omitempty"`
}

// Available reports whether the result accepted a catalog product
func (r *MatchResult) Available() bool {
	return r != nil && r.Status == StatusAvailable
}

// ProductMatch is an accepted requirement -> product pair
type ProductMatch struct {
	ProductCode            string  `json:"product_code"`
	RequirementDescription string  `json:"requirement_description"`
	Qty                    int     `json:"qty"`
	Similarity             float64 `json:"similarity"`
	DimensionsMatch        bool    `json:"dimensions_match"`
}

// AvailabilityReport partitions requirements into per-vendor matches and unmatched descriptions
type AvailabilityReport struct {
	Availability     map[string][]ProductMatch `json:"availability"`
	NotAvailable     []string                  `json:"not_available"`
	UnmatchedVendors []string                  `json:"unmatched_vendors,omitempty"`
}

// ProductSummary is a catalog product with its dimensions stripped from the description
type ProductSummary struct {
	ProductCode string `json:"product_code"`
	Description string `json:"description"`
}
