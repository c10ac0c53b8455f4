package cache_test

import (
	"context"
	"testing"
	"time"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/infrastructure/cache"

	"github.com/rs/zerolog"
)

type countingClient struct {
	locationCalls  int
	priceListCalls int
	locations      []domain.StockLocation
}

func (c *countingClient) ListLocations(ctx context.Context) ([]domain.StockLocation, error) {
	c.locationCalls++
	return c.locations, nil
}

func (c *countingClient) GetMarketPriceLists(ctx context.Context) (map[string]domain.PriceList, error) {
	c.priceListCalls++
	return map[string]domain.PriceList{
		"United Arab Emirates": {ID: "gid://shopify/PriceList/1", Currency: "AED"},
	}, nil
}

// The remaining CommerceClient methods are unused by the cache.

func (c *countingClient) CreateProduct(ctx context.Context, p *domain.NewProduct) (*domain.CreatedProduct, error) {
	return nil, nil
}
func (c *countingClient) FindVariantBySKU(ctx context.Context, sku string) (*domain.VariantRef, error) {
	return nil, nil
}
func (c *countingClient) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID uint64, quantity int) error {
	return nil
}
func (c *countingClient) SetMetafield(ctx context.Context, ownerGID, namespace, key, valueType, value string) error {
	return nil
}
func (c *countingClient) UpdatePriceListEntry(ctx context.Context, priceListID, variantGID string, amount float64, currency string, compareAmount *float64) error {
	return nil
}
func (c *countingClient) UpdateVariantPrice(ctx context.Context, variantID uint64, price float64, compareAt *float64) error {
	return nil
}
func (c *countingClient) UpdateVariantDetails(ctx context.Context, variantID uint64, title, barcode string) error {
	return nil
}
func (c *countingClient) UpdateProductTitle(ctx context.Context, productID uint64, title string) error {
	return nil
}
func (c *countingClient) SearchImagesByFilename(ctx context.Context, name string, limit int) ([]string, error) {
	return nil, nil
}

func TestPrimaryLocationIsCached(t *testing.T) {
	client := &countingClient{locations: []domain.StockLocation{
		{ID: 11, Name: "Closed", Active: false},
		{ID: 22, Name: "Main", Active: true},
	}}
	tc, err := cache.NewTopologyCache(client, nil, time.Hour, "", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		id, err := tc.PrimaryLocation(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if id != 22 {
			t.Fatalf("active location should win, got %d", id)
		}
	}
	if client.locationCalls != 1 {
		t.Fatalf("want 1 lookup, got %d", client.locationCalls)
	}
}

func TestFixedLocationOverrideSkipsLookup(t *testing.T) {
	client := &countingClient{}
	tc, err := cache.NewTopologyCache(client, nil, time.Hour, "9900", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	id, err := tc.PrimaryLocation(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != 9900 {
		t.Fatalf("got %d", id)
	}
	if client.locationCalls != 0 {
		t.Fatal("override must not hit the platform")
	}
}

func TestInvalidLocationOverride(t *testing.T) {
	if _, err := cache.NewTopologyCache(&countingClient{}, nil, time.Hour, "not-a-number", zerolog.Nop()); err == nil {
		t.Fatal("garbage override must be rejected at startup")
	}
}

func TestMarketPriceListsCachedAndInvalidated(t *testing.T) {
	client := &countingClient{locations: []domain.StockLocation{{ID: 1, Active: true}}}
	tc, err := cache.NewTopologyCache(client, nil, time.Hour, "", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		lists, err := tc.MarketPriceLists(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if lists["United Arab Emirates"].Currency != "AED" {
			t.Fatalf("unexpected lists: %+v", lists)
		}
	}
	if client.priceListCalls != 1 {
		t.Fatalf("want 1 fetch, got %d", client.priceListCalls)
	}

	if err := tc.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := tc.MarketPriceLists(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.priceListCalls != 2 {
		t.Fatalf("invalidate must force a refetch, got %d", client.priceListCalls)
	}
}

func TestTTLExpiryForcesRefetch(t *testing.T) {
	client := &countingClient{locations: []domain.StockLocation{{ID: 1, Active: true}}}
	tc, err := cache.NewTopologyCache(client, nil, 10*time.Millisecond, "", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tc.PrimaryLocation(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := tc.PrimaryLocation(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.locationCalls != 2 {
		t.Fatalf("stale entry must be refetched, got %d calls", client.locationCalls)
	}
}
