package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fragrance-sync-layer/internal/domain"
)

// RetryConfig controls the GraphQL sender's rate-limit handling. Backoff is
// linear (base × attempt), no jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// BucketThreshold is the utilization of the platform's call-limit
	// bucket above which the sender pauses before returning, e.g. 0.9.
	BucketThreshold float64
}

// DefaultRetryConfig returns the retry policy used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		BaseDelay:       500 * time.Millisecond,
		BucketThreshold: 0.9,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type userError struct {
	Field   []string `json:"field,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
}

func userErrorsToError(operation string, errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%s user errors: %s", operation, strings.Join(msgs, "; "))
}

// graphql sends one Admin GraphQL request and decodes the data payload into
// out. Rate-limit responses (HTTP 429 or THROTTLED error codes) and
// transport failures are retried with linear backoff up to the attempt
// ceiling, then surface as ExhaustedRetriesError. Application-level
// userErrors inside a 200 are the caller's problem and are never retried.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.retry.BaseDelay * time.Duration(attempt)
			c.logger.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying platform graphql call")
			if err := sleepWithContext(ctx, delay); err != nil {
				return err
			}
		}

		done, err := c.graphqlOnce(ctx, payload, out)
		if done {
			return err
		}
		lastErr = err
	}

	return &domain.ExhaustedRetriesError{Attempts: c.retry.MaxAttempts, Last: lastErr}
}

// graphqlOnce performs a single attempt. done=false means the failure is
// retryable.
func (c *Client) graphqlOnce(ctx context.Context, payload []byte, out any) (done bool, err error) {
	defer c.timeCall("graphql")()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return true, fmt.Errorf("failed to create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return false, fmt.Errorf("graphql transport error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read graphql response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return false, &domain.UpstreamError{Platform: "shopify", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return true, &domain.UpstreamError{Platform: "shopify", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var envelope graphQLEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return true, fmt.Errorf("failed to decode graphql response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		if isThrottled(envelope.Errors) {
			return false, fmt.Errorf("graphql throttled: %s", envelope.Errors[0].Message)
		}
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return true, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	// When the call-limit bucket is nearly drained, pause before returning
	// so the next call does not trip the limiter.
	if wait := c.bucketPause(resp.Header.Get("X-Shopify-Shopify-Api-Call-Limit")); wait > 0 {
		_ = sleepWithContext(ctx, wait)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return true, fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}
	return true, nil
}

func isThrottled(errs []graphQLError) bool {
	for _, e := range errs {
		if strings.Contains(strings.ToLower(e.Message), "throttled") {
			return true
		}
		if code, ok := e.Extensions["code"].(string); ok && strings.EqualFold(code, "THROTTLED") {
			return true
		}
	}
	return false
}

// bucketPause parses a "used/total" call-limit header and returns how long
// to pause when utilization crosses the configured threshold.
func (c *Client) bucketPause(header string) time.Duration {
	if header == "" || c.retry.BucketThreshold <= 0 {
		return 0
	}
	parts := strings.SplitN(header, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	used, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	total, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || total <= 0 {
		return 0
	}
	if float64(used)/float64(total) >= c.retry.BucketThreshold {
		return c.retry.BaseDelay
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
