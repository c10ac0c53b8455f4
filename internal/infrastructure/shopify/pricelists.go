package shopify

import (
	"context"
	"strconv"

	"fragrance-sync-layer/internal/domain"
)

type marketPriceListData struct {
	Markets struct {
		Nodes []struct {
			Name     string `json:"name"`
			Catalogs struct {
				Nodes []struct {
					PriceList *struct {
						ID       string `json:"id"`
						Name     string `json:"name"`
						Currency string `json:"currency"`
					} `json:"priceList"`
				} `json:"nodes"`
			} `json:"catalogs"`
		} `json:"nodes"`
	} `json:"markets"`
}

const marketPriceListQuery = `
query ($first: Int!) {
	markets(first: $first) {
		nodes {
			name
			catalogs(first: 10) {
				nodes {
					priceList { id name currency }
				}
			}
		}
	}
}`

// GetMarketPriceLists maps platform market names to their attached price
// lists. Markets without a price list are skipped.
func (c *Client) GetMarketPriceLists(ctx context.Context) (map[string]domain.PriceList, error) {
	var data marketPriceListData
	if err := c.graphql(ctx, marketPriceListQuery, map[string]any{"first": 20}, &data); err != nil {
		return nil, err
	}

	priceLists := make(map[string]domain.PriceList)
	for _, market := range data.Markets.Nodes {
		for _, catalog := range market.Catalogs.Nodes {
			if catalog.PriceList == nil {
				continue
			}
			priceLists[market.Name] = domain.PriceList{
				ID:       catalog.PriceList.ID,
				Currency: catalog.PriceList.Currency,
			}
			c.logger.Debug().
				Str("market", market.Name).
				Str("priceListId", catalog.PriceList.ID).
				Str("currency", catalog.PriceList.Currency).
				Msg("Discovered market price list")
		}
	}
	return priceLists, nil
}

type priceListFixedPricesAddData struct {
	PriceListFixedPricesAdd struct {
		Prices []struct {
			Variant struct {
				ID string `json:"id"`
			} `json:"variant"`
		} `json:"prices"`
		UserErrors []userError `json:"userErrors"`
	} `json:"priceListFixedPricesAdd"`
}

const priceListFixedPricesAddMutation = `
mutation priceListFixedPricesAdd($priceListId: ID!, $prices: [PriceListPriceInput!]!) {
	priceListFixedPricesAdd(priceListId: $priceListId, prices: $prices) {
		prices {
			price { amount currencyCode }
			compareAtPrice { amount currencyCode }
			variant { id }
		}
		userErrors { field code message }
	}
}`

// UpdatePriceListEntry writes a fixed price (and optional comparison price)
// for one variant onto one market's price list.
func (c *Client) UpdatePriceListEntry(ctx context.Context, priceListID, variantGID string, amount float64, currency string, compareAmount *float64) error {
	priceInput := map[string]any{
		"variantId": variantGID,
		"price": map[string]any{
			"amount":       formatAmount(amount),
			"currencyCode": currency,
		},
	}
	if compareAmount != nil {
		priceInput["compareAtPrice"] = map[string]any{
			"amount":       formatAmount(*compareAmount),
			"currencyCode": currency,
		}
	}

	var data priceListFixedPricesAddData
	err := c.graphql(ctx, priceListFixedPricesAddMutation, map[string]any{
		"priceListId": priceListID,
		"prices":      []map[string]any{priceInput},
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError("priceListFixedPricesAdd", data.PriceListFixedPricesAdd.UserErrors)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
