package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/infrastructure/ai"

	"github.com/rs/zerolog"
)

func TestCompleteReturnsAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("model: %v", req["model"])
		}
		if req["response_format"] != nil {
			t.Error("plain completion must not force JSON mode")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "<h2>Oud Royale</h2>"}},
			},
		})
	}))
	defer server.Close()

	client := ai.NewOpenAIClientWithBaseURL("key", "gpt-4o-mini", server.URL, zerolog.Nop())
	out, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatal(err)
	}
	if out != "<h2>Oud Royale</h2>" {
		t.Fatalf("got %q", out)
	}
}

func TestCompleteJSONSetsResponseFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		format, _ := req["response_format"].(map[string]any)
		if format["type"] != "json_object" {
			t.Errorf("response_format: %v", req["response_format"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"overall_pass":true}`}},
			},
		})
	}))
	defer server.Close()

	client := ai.NewOpenAIClientWithBaseURL("key", "gpt-4o-mini", server.URL, zerolog.Nop())
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatal(err)
	}
}

func TestCompleteErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, func(err error) bool {
			var e *domain.RateLimitedError
			return errors.As(err, &e)
		}},
		{http.StatusBadGateway, func(err error) bool {
			var e *domain.TransientError
			return errors.As(err, &e)
		}},
		{http.StatusUnauthorized, func(err error) bool {
			var e *domain.UpstreamError
			return errors.As(err, &e) && !domain.IsRetryable(err)
		}},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := ai.NewOpenAIClientWithBaseURL("key", "gpt-4o-mini", server.URL, zerolog.Nop())
		_, err := client.Complete(context.Background(), "system", "user")
		if err == nil || !tc.check(err) {
			t.Errorf("status %d mapped to wrong error: %v", tc.status, err)
		}
		server.Close()
	}
}
