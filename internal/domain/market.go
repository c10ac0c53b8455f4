package domain

// Market is a pricing region configured on the commerce platform.
type Market string

const (
	MarketUAE     Market = "UAE"
	MarketAsia    Market = "Asia"
	MarketAmerica Market = "America"
)

// Markets lists every configured market in write order.
var Markets = []Market{MarketUAE, MarketAsia, MarketAmerica}

// MarketDisplayNames maps a market key to the market name as configured on
// the platform. Price-list lookups go through this mapping; the currency for
// each market always comes from the platform's own price-list metadata.
var MarketDisplayNames = map[Market]string{
	MarketUAE:     "United Arab Emirates",
	MarketAsia:    "Asia Market",
	MarketAmerica: "America & Australia Market",
}

// PriceList identifies a market's fixed price list on the platform.
type PriceList struct {
	ID       string
	Currency string
}

// MarketPriceField maps a market to the inventory column carrying its price.
func MarketPriceField(m Market) string {
	switch m {
	case MarketUAE:
		return FieldUAEPrice
	case MarketAsia:
		return FieldAsiaPrice
	case MarketAmerica:
		return FieldAmericaPrice
	}
	return ""
}

// MarketPrice reads a market's price from the record, tolerating the two
// spellings of the UAE column that exist upstream.
func (r *InventoryRecord) MarketPrice(m Market) *float64 {
	if m == MarketUAE {
		if n := r.OptionalNumber(FieldUAEPrice); n != nil {
			return n
		}
		return r.OptionalNumber(FieldUAEPriceAlt)
	}
	return r.OptionalNumber(MarketPriceField(m))
}
