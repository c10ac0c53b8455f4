package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fragrance-sync-layer/internal/config"
	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Observer is called with the duration of every outbound platform call.
type Observer func(op string, d time.Duration)

// Client adapts the commerce platform's Admin APIs. REST operations go
// through the go-shopify SDK; operations the SDK does not cover (variant
// search, metafields, markets, price lists, media search) use the GraphQL
// endpoint via the retrying sender in graphql.go.
type Client struct {
	shopDomain string
	token      string
	apiVersion string
	rest       *goshopify.Client
	httpClient *http.Client
	graphqlURL string
	retry      RetryConfig
	observe    Observer
	logger     zerolog.Logger
}

// NewClient creates a platform client adapter.
func NewClient(cfg config.ShopifyConfig, logger zerolog.Logger) (ports.CommerceClient, error) {
	return NewClientWithOptions(cfg, nil, DefaultRetryConfig(), nil, logger)
}

// NewClientWithOptions creates a client with an explicit HTTP client, retry
// policy, and call observer.
func NewClientWithOptions(
	cfg config.ShopifyConfig,
	httpClient *http.Client,
	retry RetryConfig,
	observe Observer,
	logger zerolog.Logger,
) (ports.CommerceClient, error) {
	rest, err := goshopify.NewClient(
		goshopify.App{},
		cfg.Shop,
		cfg.Token,
		goshopify.WithVersion(cfg.APIVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		shopDomain: cfg.Shop,
		token:      cfg.Token,
		apiVersion: cfg.APIVersion,
		rest:       rest,
		httpClient: httpClient,
		graphqlURL: fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.Shop, cfg.APIVersion),
		retry:      retry,
		observe:    observe,
		logger:     logger,
	}, nil
}

func (c *Client) timeCall(op string) func() {
	if c.observe == nil {
		return func() {}
	}
	start := time.Now()
	return func() { c.observe(op, time.Since(start)) }
}

// CreateProduct creates a product with its single default variant. This is
// the only step of the create workflow whose failure is fatal.
func (c *Client) CreateProduct(ctx context.Context, p *domain.NewProduct) (*domain.CreatedProduct, error) {
	defer c.timeCall("product_create")()

	price := decimal.NewFromFloat(p.Price)
	weight := decimal.NewFromFloat(p.WeightGrams)
	variant := goshopify.Variant{
		Sku:                 p.SKU,
		Price:               &price,
		Barcode:             p.Barcode,
		Weight:              &weight,
		WeightUnit:          "g",
		InventoryManagement: "shopify",
		InventoryPolicy:     "deny",
	}

	product := goshopify.Product{
		Title:       p.Title,
		BodyHTML:    p.BodyHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Tags:        p.Tags,
		Status:      goshopify.ProductStatus(p.Status),
		Variants:    []goshopify.Variant{variant},
		Options:     []goshopify.ProductOption{{Name: "Title", Values: []string{"Default Title"}}},
	}
	for _, u := range p.ImageURLs {
		product.Images = append(product.Images, goshopify.Image{Src: u})
	}

	created, err := c.rest.Product.Create(ctx, product)
	if err != nil {
		return nil, asUpstreamError(err)
	}
	if created == nil || created.Id == 0 || len(created.Variants) == 0 {
		return nil, &domain.UpstreamError{Platform: "shopify", Status: 0, Body: "product create returned no product"}
	}

	c.logger.Info().
		Uint64("productId", created.Id).
		Str("sku", p.SKU).
		Str("status", string(p.Status)).
		Msg("Created product")

	return &domain.CreatedProduct{
		ProductID:       created.Id,
		VariantID:       created.Variants[0].Id,
		InventoryItemID: created.Variants[0].InventoryItemId,
	}, nil
}

// SetInventoryLevel sets the absolute available quantity at one location.
func (c *Client) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID uint64, quantity int) error {
	defer c.timeCall("inventory_set")()

	_, err := c.rest.InventoryLevel.Set(ctx, goshopify.InventoryLevel{
		InventoryItemId: inventoryItemID,
		LocationId:      locationID,
		Available:       quantity,
	})
	if err != nil {
		return asUpstreamError(err)
	}
	return nil
}

// UpdateVariantPrice sets the variant's default (store currency) price.
func (c *Client) UpdateVariantPrice(ctx context.Context, variantID uint64, price float64, compareAt *float64) error {
	defer c.timeCall("variant_price_update")()

	p := decimal.NewFromFloat(price)
	variant := goshopify.Variant{Id: variantID, Price: &p}
	if compareAt != nil {
		cmp := decimal.NewFromFloat(*compareAt)
		variant.CompareAtPrice = &cmp
	}
	if _, err := c.rest.Variant.Update(ctx, variant); err != nil {
		return asUpstreamError(err)
	}
	return nil
}

// UpdateVariantDetails updates title and/or barcode on a variant. Blank
// arguments are left untouched; both blank is a no-op.
func (c *Client) UpdateVariantDetails(ctx context.Context, variantID uint64, title, barcode string) error {
	if title == "" && barcode == "" {
		return nil
	}
	defer c.timeCall("variant_details_update")()

	variant := goshopify.Variant{Id: variantID, Title: title, Barcode: barcode}
	if _, err := c.rest.Variant.Update(ctx, variant); err != nil {
		return asUpstreamError(err)
	}
	return nil
}

// UpdateProductTitle renames a product.
func (c *Client) UpdateProductTitle(ctx context.Context, productID uint64, title string) error {
	defer c.timeCall("product_title_update")()

	if _, err := c.rest.Product.Update(ctx, goshopify.Product{Id: productID, Title: title}); err != nil {
		return asUpstreamError(err)
	}
	return nil
}

// ListLocations returns the shop's stock locations.
func (c *Client) ListLocations(ctx context.Context) ([]domain.StockLocation, error) {
	defer c.timeCall("location_list")()

	locations, err := c.rest.Location.List(ctx, nil)
	if err != nil {
		return nil, asUpstreamError(err)
	}
	out := make([]domain.StockLocation, 0, len(locations))
	for _, l := range locations {
		out = append(out, domain.StockLocation{ID: l.Id, Name: l.Name, Active: l.Active})
	}
	return out, nil
}

// asUpstreamError converts an SDK response error into the domain taxonomy.
func asUpstreamError(err error) error {
	if err == nil {
		return nil
	}
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return &domain.UpstreamError{Platform: "shopify", Status: respErr.Status, Body: respErr.Error()}
	}
	return err
}
