package shopify

import (
	"context"
	"fmt"
	"strconv"

	"fragrance-sync-layer/internal/domain"
)

type variantSearchData struct {
	ProductVariants struct {
		Nodes []struct {
			ID      string `json:"id"`
			Sku     string `json:"sku"`
			Product struct {
				ID string `json:"id"`
			} `json:"product"`
		} `json:"nodes"`
	} `json:"productVariants"`
}

const variantBySKUQuery = `
query ($query: String!) {
	productVariants(first: 5, query: $query) {
		nodes { id sku product { id } }
	}
}`

// FindVariantBySKU looks up a variant by exact SKU. A miss returns
// (nil, nil); callers treat it as a 404-equivalent condition. On a hit the
// variant's inventory item id is resolved with a follow-up REST fetch.
func (c *Client) FindVariantBySKU(ctx context.Context, sku string) (*domain.VariantRef, error) {
	var data variantSearchData
	err := c.graphql(ctx, variantBySKUQuery, map[string]any{
		"query": fmt.Sprintf("sku:%q", sku),
	}, &data)
	if err != nil {
		return nil, err
	}

	// The search is a prefix match on the platform side; insist on an
	// exact SKU before touching anything.
	var variantGID, productGID string
	for _, node := range data.ProductVariants.Nodes {
		if node.Sku == sku {
			variantGID = node.ID
			productGID = node.Product.ID
			break
		}
	}
	if variantGID == "" {
		c.logger.Info().Str("sku", sku).Msg("No variant found for SKU")
		return nil, nil
	}

	variantID, err := strconv.ParseUint(domain.NumericID(variantGID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected variant gid %q: %w", variantGID, err)
	}

	variant, err := c.rest.Variant.Get(ctx, variantID, nil)
	if err != nil {
		return nil, asUpstreamError(err)
	}

	return &domain.VariantRef{
		VariantGID:      variantGID,
		ProductGID:      productGID,
		VariantID:       variantID,
		InventoryItemID: variant.InventoryItemId,
	}, nil
}
