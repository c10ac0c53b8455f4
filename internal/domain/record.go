package domain

import (
	"strconv"
	"strings"
)

// Airtable column names used by the sync workflows. The inventory table is
// the system of record; this service only reads these fields and writes
// FieldShopifyID / FieldCreateInShopify back.
const (
	FieldProductName     = "Product Name"
	FieldTitle           = "Title"
	FieldBrand           = "Brand"
	FieldType            = "Type"
	FieldCategory        = "Category"
	FieldSKU             = "SKU"
	FieldBarcode         = "Barcode"
	FieldWeight          = "Weight"
	FieldSize            = "Size"
	FieldGender          = "Gender"
	FieldDescription     = "ShopifyDesc"
	FieldImageURLs       = "Image URLs"
	FieldQuantity        = "Qty given in shopify"
	FieldUAEPrice        = "UAE Price"
	FieldUAEPriceAlt     = "UAE price"
	FieldAsiaPrice       = "Asia Price"
	FieldAmericaPrice    = "America Price"
	FieldUAECompare      = "UAE Comparison Price"
	FieldShopifyID       = "ShopifyID"
	FieldCreateInShopify = "Create in Shopify"
)

// InventoryRecord is a row from the external inventory store. Fields is the
// raw column map as delivered by the store or the webhook payload.
type InventoryRecord struct {
	ID     string
	Fields map[string]any
}

// String returns a trimmed string field, or "" when absent.
func (r *InventoryRecord) String(field string) string {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Number returns a numeric field coerced with CoerceNumber.
func (r *InventoryRecord) Number(field string) float64 {
	return CoerceNumber(r.Fields[field])
}

// OptionalNumber returns a numeric field, or nil when absent or unparseable.
func (r *InventoryRecord) OptionalNumber(field string) *float64 {
	return OptionalNumber(r.Fields[field])
}

// ImageURLs extracts image references from the record. The inventory store
// delivers either attachment objects with a "url" key or plain URL strings.
func (r *InventoryRecord) ImageURLs() []string {
	raw, ok := r.Fields[FieldImageURLs]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var urls []string
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				urls = append(urls, s)
			}
		case map[string]any:
			if u, ok := v["url"].(string); ok && strings.TrimSpace(u) != "" {
				urls = append(urls, strings.TrimSpace(u))
			}
		}
	}
	return urls
}

// CoerceNumber converts an inventory field to a number. Blank or unparseable
// values coerce to 0, never an error. Used for quantity and weight where a
// number is always required.
func CoerceNumber(v any) float64 {
	n := OptionalNumber(v)
	if n == nil {
		return 0
	}
	return *n
}

// OptionalNumber converts an inventory field to a number, or nil when the
// value is absent, blank, or unparseable. Used for regional prices where
// absence means "do not touch this market".
func OptionalNumber(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
