package airtable_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fragrance-sync-layer/internal/config"
	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/infrastructure/airtable"

	"github.com/rs/zerolog"
)

func testConfig() config.AirtableConfig {
	return config.AirtableConfig{BaseID: "appTest", APIKey: "key-test", Table: "French Inventories"}
}

func TestGetRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-test" {
			t.Errorf("auth header: %q", got)
		}
		if r.URL.Path != "/appTest/French%20Inventories/rec123" && r.URL.Path != "/appTest/French Inventories/rec123" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":"rec123","fields":{"Product Name":"Oud Royale","SKU":"P100"}}`))
	}))
	defer server.Close()

	client := airtable.NewClientWithBaseURL(testConfig(), server.URL, server.Client(), zerolog.Nop())
	record, err := client.GetRecord(context.Background(), "rec123")
	if err != nil {
		t.Fatal(err)
	}
	if record.ID != "rec123" || record.String(domain.FieldSKU) != "P100" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := airtable.NewClientWithBaseURL(testConfig(), server.URL, server.Client(), zerolog.Nop())
	_, err := client.GetRecord(context.Background(), "recMissing")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestUpdateRecordFields(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("want PATCH, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"rec123","fields":{}}`))
	}))
	defer server.Close()

	client := airtable.NewClientWithBaseURL(testConfig(), server.URL, server.Client(), zerolog.Nop())
	err := client.UpdateRecordFields(context.Background(), "rec123", map[string]any{
		"ShopifyID":         "9001",
		"Create in Shopify": false,
	})
	if err != nil {
		t.Fatal(err)
	}

	fields, _ := gotBody["fields"].(map[string]any)
	if fields["ShopifyID"] != "9001" || fields["Create in Shopify"] != false {
		t.Fatalf("unexpected payload: %+v", gotBody)
	}
}

func TestUpdateRecordUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"INVALID_VALUE"}}`))
	}))
	defer server.Close()

	client := airtable.NewClientWithBaseURL(testConfig(), server.URL, server.Client(), zerolog.Nop())
	err := client.UpdateRecordFields(context.Background(), "rec123", map[string]any{"X": 1})
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("want UpstreamError, got %v", err)
	}
	if upstream.Platform != "airtable" || upstream.Status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected error: %+v", upstream)
	}
}
