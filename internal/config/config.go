package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the full environment-derived configuration. Credentials are
// required and fail Load when absent; everything else has a default.
type Config struct {
	Port string

	Shopify  ShopifyConfig
	Airtable AirtableConfig

	WebhookSecret string

	OpenAIKey     string
	PerplexityKey string

	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	TopologyTTL time.Duration
}

type ShopifyConfig struct {
	Shop       string
	Token      string
	APIVersion string
	// LocationID, when set, skips the primary-location lookup entirely.
	LocationID string
}

type AirtableConfig struct {
	BaseID string
	APIKey string
	Table  string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	shop, err := requiredString("SHOPIFY_SHOP")
	if err != nil {
		return nil, err
	}
	token, err := requiredString("SHOPIFY_API_TOKEN")
	if err != nil {
		return nil, err
	}
	baseID, err := requiredString("AIRTABLE_BASE_ID")
	if err != nil {
		return nil, err
	}
	airtableKey, err := requiredString("AIRTABLE_API_KEY")
	if err != nil {
		return nil, err
	}
	secret, err := requiredString("WEBHOOK_SECRET")
	if err != nil {
		return nil, err
	}

	ttl, err := durationWithDefault("TOPOLOGY_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port: stringWithDefault("PORT", "8080"),
		Shopify: ShopifyConfig{
			Shop:       shop,
			Token:      token,
			APIVersion: stringWithDefault("SHOPIFY_API_VERSION", "2024-07"),
			LocationID: os.Getenv("SHOPIFY_LOCATION_ID"),
		},
		Airtable: AirtableConfig{
			BaseID: baseID,
			APIKey: airtableKey,
			Table:  stringWithDefault("AIRTABLE_TABLE_NAME", "French Inventories"),
		},
		WebhookSecret: secret,
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		PerplexityKey: os.Getenv("PERPLEXITY_API_KEY"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: stringWithDefault("MONGODB_DATABASE", "fragrance_sync"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		TopologyTTL:   ttl,
	}, nil
}

func requiredString(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return v, nil
}

func stringWithDefault(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	return v
}

func durationWithDefault(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
