package domain

import (
	"strconv"
	"strings"
)

// ProductStatus is the lifecycle status of a platform product.
type ProductStatus string

const (
	ProductStatusActive ProductStatus = "active"
	ProductStatusDraft  ProductStatus = "draft"
)

// StatusForQuantity derives the lifecycle status from stock quantity:
// active iff quantity > 0, else draft.
func StatusForQuantity(quantity float64) ProductStatus {
	if quantity > 0 {
		return ProductStatusActive
	}
	return ProductStatusDraft
}

// DefaultWeightGrams is applied when the inventory record carries no weight.
const DefaultWeightGrams = 850

// NewProduct is the payload for creating a platform product with its single
// default variant.
type NewProduct struct {
	Title        string
	BodyHTML     string
	Vendor       string
	ProductType  string
	Tags         string
	Status       ProductStatus
	SKU          string
	Price        float64
	Barcode      string
	WeightGrams  float64
	ImageURLs    []string
}

// CreatedProduct carries the identifiers assigned by the platform on create.
type CreatedProduct struct {
	ProductID       uint64
	VariantID       uint64
	InventoryItemID uint64
}

// VariantRef identifies an existing variant found by SKU, in both the
// GraphQL gid form and the numeric REST form.
type VariantRef struct {
	VariantGID      string
	ProductGID      string
	VariantID       uint64
	InventoryItemID uint64
}

// StockLocation is a warehouse location on the platform.
type StockLocation struct {
	ID     uint64
	Name   string
	Active bool
}

// GID builders for the platform's GraphQL identifiers.

func ProductGID(id uint64) string {
	return gid("Product", id)
}

func VariantGID(id uint64) string {
	return gid("ProductVariant", id)
}

func gid(kind string, id uint64) string {
	return "gid://shopify/" + kind + "/" + strconv.FormatUint(id, 10)
}

// NumericID extracts the trailing numeric segment of a gid. Returns the
// input unchanged when it is not a gid.
func NumericID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		return gid[i+1:]
	}
	return gid
}

// NormalizeGender maps free-text gender values to the platform's accepted
// set, defaulting to unisex.
func NormalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "men", "man", "m":
		return "male"
	case "female", "women", "woman", "f":
		return "female"
	default:
		return "unisex"
	}
}
