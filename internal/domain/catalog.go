package domain

import "strings"

// CatalogEntry is one sellable product. Identity is (VendorCode, ProductCode).
type CatalogEntry struct {
	VendorCode  string `json:"vendor_code"`
	ProductCode string `json:"product_code"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// PriceListResponse mirrors the getEnterpriseListing GraphQL response of the vendor API.
// Only the fields the matcher reads are declared; everything else is ignored.
type PriceListResponse struct {
	Data   PriceListData  `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// PriceListData is the "data" member of a price list response
type PriceListData struct {
	GetEnterpriseListing EnterpriseListing `json:"getEnterpriseListing"`
}

// EnterpriseListing holds one edge per vendor
type EnterpriseListing struct {
	Edges []EnterpriseEdge `json:"edges"`
}

// EnterpriseEdge wraps a vendor node
type EnterpriseEdge struct {
	Node EnterpriseNode `json:"node"`
}

// EnterpriseNode is a vendor with its catalog sections
type EnterpriseNode struct {
	Code        string           `json:"code"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Children    []CatalogSection `json:"children,omitempty"`
}

// CatalogSection is a vendor catalog; its children are folders
type CatalogSection struct {
	Code        string          `json:"code,omitempty"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Children    []CatalogFolder `json:"children,omitempty"`
}

// CatalogFolder groups objects under a key; only "Product" folders hold products
type CatalogFolder struct {
	Key      string           `json:"key"`
	Children []CatalogProduct `json:"children,omitempty"`
}

// CatalogProduct is a product as delivered by the vendor API
type CatalogProduct struct {
	Code            string            `json:"code"`
	Description     string            `json:"description"`
	ProductCategory []ProductCategory `json:"productCategory,omitempty"`
}

// ProductCategory is the fieldcollection_productCategory wrapper
type ProductCategory struct {
	ProductCategory string `json:"productCategory"`
}

// GraphQLError is a single entry of a GraphQL "errors" array
type GraphQLError struct {
	Message string `json:"message"`
}

// productFolderKey marks the catalog folder holding sellable products
const productFolderKey = "Product"

// Entries flattens the nested vendor -> catalog -> folder -> product payload into
// catalog entries, in payload order. Products without a description are dropped, and so
// are vendors that end up with no products. Unexpected shapes (missing children, empty
// category lists) are skipped rather than treated as errors.
func (p *PriceListResponse) Entries() []CatalogEntry {
	if p == nil {
		return nil
	}

	var entries []CatalogEntry
	for _, edge := range p.Data.GetEnterpriseListing.Edges {
		vendor := edge.Node.Code
		for _, section := range edge.Node.Children {
			for _, folder := range section.Children {
				if folder.Key != productFolderKey {
					continue
				}
				for _, product := range folder.Children {
					if strings.TrimSpace(product.Description) == "" {
						continue
					}
					entries = append(entries, CatalogEntry{
						VendorCode:  vendor,
						ProductCode: product.Code,
						Description: product.Description,
						Category:    product.PrimaryCategory(),
					})
				}
			}
		}
	}

	return entries
}

// PrimaryCategory returns the first category label, or "" when none is set
func (p CatalogProduct) PrimaryCategory() string {
	if len(p.ProductCategory) == 0 {
		return ""
	}
	return p.ProductCategory[0].ProductCategory
}
