package ports

import (
	"context"

	"fragrance-sync-layer/internal/domain"
)

// InventoryClient talks to the external inventory store (the system of
// record for product data).
type InventoryClient interface {
	// GetRecord fetches a record by id. Returns domain.NotFoundError when
	// the id is unknown.
	GetRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error)

	// UpdateRecordFields writes a partial field update back to the store.
	UpdateRecordFields(ctx context.Context, recordID string, fields map[string]any) error
}

// CommerceClient talks to the commerce platform's Admin REST and GraphQL
// APIs. Implementations translate domain operations into authenticated
// HTTP calls; they carry no workflow logic.
type CommerceClient interface {
	// CreateProduct creates a product with its single default variant.
	// Returns domain.UpstreamError on any non-2xx platform response.
	CreateProduct(ctx context.Context, p *domain.NewProduct) (*domain.CreatedProduct, error)

	// FindVariantBySKU looks up a variant by exact SKU. A miss returns
	// (nil, nil), not an error; callers treat it as a 404-equivalent.
	FindVariantBySKU(ctx context.Context, sku string) (*domain.VariantRef, error)

	// SetInventoryLevel sets the absolute available quantity of an
	// inventory item at one location. Never a delta.
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID uint64, quantity int) error

	// SetMetafield writes one namespaced attribute onto a product or
	// variant, identified by its gid.
	SetMetafield(ctx context.Context, ownerGID, namespace, key, valueType, value string) error

	// UpdatePriceListEntry writes a fixed price (and optional comparison
	// price) for a variant onto one market's price list.
	UpdatePriceListEntry(ctx context.Context, priceListID, variantGID string, amount float64, currency string, compareAmount *float64) error

	// UpdateVariantPrice sets the variant's default (store currency) price.
	UpdateVariantPrice(ctx context.Context, variantID uint64, price float64, compareAt *float64) error

	// UpdateVariantDetails updates title and/or barcode; blank arguments
	// are left untouched.
	UpdateVariantDetails(ctx context.Context, variantID uint64, title, barcode string) error

	// UpdateProductTitle renames a product.
	UpdateProductTitle(ctx context.Context, productID uint64, title string) error

	// ListLocations returns the shop's stock locations.
	ListLocations(ctx context.Context) ([]domain.StockLocation, error)

	// GetMarketPriceLists maps platform market names to their price lists.
	GetMarketPriceLists(ctx context.Context) (map[string]domain.PriceList, error)

	// SearchImagesByFilename searches the platform media library for files
	// whose name matches the product name. Implementations normalize the
	// name to the filename convention used at upload time.
	SearchImagesByFilename(ctx context.Context, name string, limit int) ([]string, error)
}

// TopologyStore caches the slow-changing platform topology (primary stock
// location, market price lists) with explicit refresh.
type TopologyStore interface {
	PrimaryLocation(ctx context.Context) (uint64, error)
	MarketPriceLists(ctx context.Context) (map[string]domain.PriceList, error)
	Invalidate(ctx context.Context) error
}

// NotesResearcher queries a web-search-augmented model for fragrance notes.
type NotesResearcher interface {
	// FetchNotes never fails the pipeline: irrecoverable provider errors
	// surface as empty notes.
	FetchNotes(ctx context.Context, perfumeName, brandName, model string) (*domain.FragranceNotes, error)
}

// ChatModel is a generative text model used by the draft and validate
// stages of the copy pipeline.
type ChatModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteJSON constrains the response to a single JSON object.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
