package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"fragrance-sync-layer/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultPerplexityBaseURL = "https://api.perplexity.ai"

// research requests stay tightly scoped: low temperature, few tokens,
// search restricted to the fragrance databases we trust.
var searchDomainFilter = []string{"fragrantica.com", "parfumo.net"}

const notesSystemPrompt = "Return only JSON. No prose. Prioritize Fragrantica.com and Parfumo.net for fragrance notes."

// PerplexityClient queries Perplexity's search-augmented chat API for
// fragrance note pyramids. It implements ports.NotesResearcher.
type PerplexityClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewPerplexityClient creates a notes researcher. An empty apiKey is
// allowed: every fetch then short-circuits to empty notes.
func NewPerplexityClient(apiKey string, logger zerolog.Logger) *PerplexityClient {
	return &PerplexityClient{
		apiKey:  apiKey,
		baseURL: defaultPerplexityBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NewPerplexityClientWithBaseURL is used by tests to point at a stub server.
func NewPerplexityClientWithBaseURL(apiKey, baseURL string, logger zerolog.Logger) *PerplexityClient {
	c := NewPerplexityClient(apiKey, logger)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model              string        `json:"model"`
	Messages           []chatMessage `json:"messages"`
	Temperature        float64       `json:"temperature"`
	MaxTokens          int           `json:"max_tokens"`
	SearchDomainFilter []string      `json:"search_domain_filter,omitempty"`
	SearchRecency      string        `json:"search_recency_filter,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type rawNotes struct {
	Top     []string `json:"top"`
	Heart   []string `json:"heart"`
	Base    []string `json:"base"`
	Sources []string `json:"sources"`
}

// FetchNotes asks the given model for the note pyramid of one perfume.
// Provider failures and unparseable answers come back as empty notes, not
// errors: research must never sink the pipeline that asked for it.
func (c *PerplexityClient) FetchNotes(ctx context.Context, perfumeName, brandName, model string) (*domain.FragranceNotes, error) {
	if c.apiKey == "" {
		c.logger.Warn().Msg("No research API key configured, returning empty notes")
		return domain.EmptyNotes(), nil
	}

	query := fmt.Sprintf("Find the exact fragrance notes for '%s'", perfumeName)
	if brandName != "" {
		query += fmt.Sprintf(" by %s", brandName)
	}
	query += ". First check Fragrantica.com and Parfumo.net. " +
		"If not found there, you may use other sources. " +
		"Return JSON: {'top':[],'heart':[],'base':[],'sources':[]}"

	reqBody := perplexityRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: notesSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature:        0.1,
		MaxTokens:          400,
		SearchDomainFilter: searchDomainFilter,
		SearchRecency:      "year",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal research request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build research request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", model).Msg("Research request failed")
		return domain.EmptyNotes(), nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("model", model).Msg("Research API returned non-200")
		return domain.EmptyNotes(), nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		c.logger.Warn().Str("model", model).Msg("Unparseable research response envelope")
		return domain.EmptyNotes(), nil
	}

	text := extractJSONObject(parsed.Choices[0].Message.Content)
	var raw rawNotes
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		c.logger.Warn().Err(err).Str("model", model).Msg("Research answer was not valid JSON")
		return domain.EmptyNotes(), nil
	}

	return &domain.FragranceNotes{
		Top:     cleanNotes(raw.Top, 8),
		Heart:   cleanNotes(raw.Heart, 8),
		Base:    cleanNotes(raw.Base, 8),
		Sources: cleanSources(raw.Sources, 3),
	}, nil
}

var (
	parenthetical = regexp.MustCompile(`\(.*?\)`)
	multiSpace    = regexp.MustCompile(`\s+`)
	urlScheme     = regexp.MustCompile(`^https?://`)
	jsonObject    = regexp.MustCompile(`\{[\s\S]*\}`)

	titleCaser = cases.Title(language.English)
)

// extractJSONObject strips markdown code fences and surrounding prose,
// leaving the first {...} block.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if after, found := strings.CutPrefix(text, "```json"); found {
		text, _, _ = strings.Cut(after, "```")
	} else if after, found := strings.CutPrefix(text, "```"); found {
		text, _, _ = strings.Cut(after, "```")
	}
	if m := jsonObject.FindString(text); m != "" {
		text = m
	}
	return strings.TrimSpace(text)
}

// cleanNotes drops parentheticals, normalizes whitespace and casing, and
// rejects entries of implausible length.
func cleanNotes(notes []string, max int) []string {
	cleaned := make([]string, 0, len(notes))
	for _, note := range notes {
		n := parenthetical.ReplaceAllString(note, "")
		n = multiSpace.ReplaceAllString(strings.TrimSpace(n), " ")
		n = titleCaser.String(n)
		if len(n) >= 2 && len(n) <= 50 {
			cleaned = append(cleaned, n)
		}
		if len(cleaned) == max {
			break
		}
	}
	return cleaned
}

func cleanSources(sources []string, max int) []string {
	cleaned := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if urlScheme.MatchString(s) {
			cleaned = append(cleaned, s)
		}
		if len(cleaned) == max {
			break
		}
	}
	return cleaned
}
