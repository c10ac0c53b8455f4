package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fragrance-sync-layer/internal/config"
	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Client talks to the Airtable REST API for one base and table.
type Client struct {
	baseURL    string
	baseID     string
	table      string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates an Airtable client adapter.
func NewClient(cfg config.AirtableConfig, httpClient *http.Client, logger zerolog.Logger) ports.InventoryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    defaultBaseURL,
		baseID:     cfg.BaseID,
		table:      cfg.Table,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(cfg config.AirtableConfig, baseURL string, httpClient *http.Client, logger zerolog.Logger) ports.InventoryClient {
	c := NewClient(cfg, httpClient, logger).(*Client)
	c.baseURL = baseURL
	return c
}

type recordEnvelope struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

func (c *Client) recordURL(recordID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.table), url.PathEscape(recordID))
}

// GetRecord fetches one inventory record by id.
func (c *Client) GetRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordURL(recordID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create record request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.NotFoundError{Resource: "inventory record", Key: recordID}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Platform: "airtable", Status: resp.StatusCode, Body: string(body)}
	}

	var env recordEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode record response: %w", err)
	}
	return &domain.InventoryRecord{ID: env.ID, Fields: env.Fields}, nil
}

// UpdateRecordFields writes a partial field update back to the store.
func (c *Client) UpdateRecordFields(ctx context.Context, recordID string, fields map[string]any) error {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("failed to encode record update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.recordURL(recordID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create record update request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return &domain.NotFoundError{Resource: "inventory record", Key: recordID}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.UpstreamError{Platform: "airtable", Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug().Str("recordId", recordID).Msg("Updated inventory record")
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
