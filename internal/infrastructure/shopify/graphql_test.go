package shopify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fragrance-sync-layer/internal/domain"

	"github.com/rs/zerolog"
)

func testClient(server *httptest.Server) *Client {
	return &Client{
		token:      "test-token",
		httpClient: server.Client(),
		graphqlURL: server.URL,
		retry: RetryConfig{
			MaxAttempts:     3,
			BaseDelay:       time.Millisecond,
			BucketThreshold: 0.9,
		},
		logger: zerolog.Nop(),
	}
}

func TestGraphQLDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "test-token" {
			t.Errorf("missing access token header, got %q", got)
		}
		w.Write([]byte(`{"data":{"shop":{"name":"Test Shop"}}}`))
	}))
	defer server.Close()

	var data struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	if err := testClient(server).graphql(context.Background(), `query { shop { name } }`, nil, &data); err != nil {
		t.Fatal(err)
	}
	if data.Shop.Name != "Test Shop" {
		t.Fatalf("got %q", data.Shop.Name)
	}
}

func TestGraphQLRetriesRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	if err := testClient(server).graphql(context.Background(), `{}`, nil, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("want 2 calls, got %d", calls)
	}
}

func TestGraphQLRetriesThrottledEnvelope(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`))
			return
		}
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	if err := testClient(server).graphql(context.Background(), `{}`, nil, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("want 2 calls, got %d", calls)
	}
}

func TestGraphQLExhaustsRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := testClient(server).graphql(context.Background(), `{}`, nil, nil)
	var exhausted *domain.ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("want ExhaustedRetriesError, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 calls, got %d", calls)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("want 3 attempts recorded, got %d", exhausted.Attempts)
	}
}

func TestGraphQLHardErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":"bad request"}`))
	}))
	defer server.Close()

	err := testClient(server).graphql(context.Background(), `{}`, nil, nil)
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("want UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", upstream.Status)
	}
	if calls != 1 {
		t.Fatalf("a 422 must not be retried, got %d calls", calls)
	}
}

func TestGraphQLUserErrorsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"errors":[{"message":"Field is invalid"}]}`))
	}))
	defer server.Close()

	err := testClient(server).graphql(context.Background(), `{}`, nil, nil)
	if err == nil || calls != 1 {
		t.Fatalf("application errors must surface once, err=%v calls=%d", err, calls)
	}
}

func TestBucketPause(t *testing.T) {
	c := &Client{retry: RetryConfig{BaseDelay: 250 * time.Millisecond, BucketThreshold: 0.9}}
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"10/40", 0},
		{"36/40", 250 * time.Millisecond},
		{"40/40", 250 * time.Millisecond},
		{"garbage", 0},
		{"1/0", 0},
	}
	for _, tc := range cases {
		if got := c.bucketPause(tc.header); got != tc.want {
			t.Errorf("bucketPause(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}

func TestNormalizeFilename(t *testing.T) {
	cases := map[string]string{
		"Oud Royale":            "oud_royale",
		"  Néroli   Précieux! ": "neroli_precieux",
		"Rose-Noire":            "rose_noire",
		"N°5 (Eau)":             "n5_eau",
		"":                      "",
	}
	for in, want := range cases {
		if got := NormalizeFilename(in); got != want {
			t.Errorf("NormalizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
