package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	researchModel         = "sonar"
	researchFallbackModel = "sonar-pro"
)

const creatorSystemPrompt = `You are an expert SEO copywriter for Shopify perfume listings.

GOAL:
Create elegant, factual, and SEO-optimized perfume descriptions in valid HTML format.

RULES:
- Use ONLY the factual notes provided. Never invent new ones.
- Use semantic HTML only: <h2>, <h3>, <p>, <ul>, <li>, <strong>, <a>.
- Do NOT include inline styles, scripts, emojis, or special characters.
- All text must be professionally written and naturally flowing.

STRUCTURE:
1. <h2>Product Name</h2>
2. Intro paragraph: 2 natural sentences introducing the perfume (tone depends on gender/unisex and concentration hints).
3. <h3>The Experience</h3> - describe the sensory character, projection, and emotion of the scent.
4. <h3>Signature Notes</h3>
   - Present the notes in a clean <ul>.
   - Include list items only for note categories that contain actual notes.
   - If one category (top/heart/base) is missing, omit it entirely.
   - Never write "None specified" or similar placeholders.
   - If all categories are empty, reuse any available note from other tiers to show at least one item.
5. <h3>Perfect For</h3> - describe suitable occasions or seasons in 1-2 lines.
6. Add exactly one internal link at the end:
   <p>Discover more from <a href="/collections/{slug}">{Brand} perfumes</a></p>

SEO STYLE:
- Keep it human, smooth, and concise.
- Mention the perfume name once naturally in the text.
- Use clear spacing between paragraphs.
- Avoid repetition or keyword stuffing.`

const validatorSystemPrompt = `Validate and correct the provided HTML perfume description.

VALIDATION RULES:
1. Content must match provided factual notes and perfume data exactly (no invented notes or brands).
2. Required section order:
   H2 (Product Name) -> Intro -> The Experience -> Signature Notes -> Perfect For -> Internal Link
3. The <h3>Signature Notes</h3> section must:
   - Contain at least one <li> element.
   - Never contain text like "None", "Not specified", or placeholders.
   - Remove empty categories (e.g., Top Notes with no notes).
4. There must be exactly one internal link at the end in this exact format:
   <p>Discover more from <a href="/collections/{slug}">{Brand} perfumes</a></p>
5. Remove any emojis, symbols, or invalid tags.
6. Ensure HTML is valid, clean, and properly nested.

OUTPUT FORMAT:
Return JSON in this exact structure:
{
  "overall_pass": bool,
  "failures": ["list of issues found"],
  "corrected": {
    "content_html": "fully corrected and validated HTML"
  }
}`

// CopyService runs the description pipeline: research the fragrance notes,
// draft HTML copy, validate and correct it, then sanitize. Only rate limits
// and transient provider failures are retried; everything else propagates.
type CopyService struct {
	researcher ports.NotesResearcher
	model      ports.ChatModel
	metrics    ports.MetricsRecorder
	logger     zerolog.Logger

	maxAttempts int
	baseDelay   time.Duration
}

// NewCopyService creates a copy service with the default retry budget.
func NewCopyService(researcher ports.NotesResearcher, model ports.ChatModel, metrics ports.MetricsRecorder, logger zerolog.Logger) *CopyService {
	return NewCopyServiceWithOptions(researcher, model, metrics, logger, 3, time.Second)
}

// NewCopyServiceWithOptions creates a copy service with an explicit retry
// budget and backoff base.
func NewCopyServiceWithOptions(researcher ports.NotesResearcher, model ports.ChatModel, metrics ports.MetricsRecorder, logger zerolog.Logger, maxAttempts int, baseDelay time.Duration) *CopyService {
	return &CopyService{
		researcher:  researcher,
		model:       model,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// Generate produces the sanitized HTML description for one perfume.
func (s *CopyService) Generate(ctx context.Context, perfumeName, brandName string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		html, err := s.generateOnce(ctx, perfumeName, brandName)
		if err == nil {
			s.metrics.RecordCopyRun("success")
			return html, nil
		}
		lastErr = err
		if !domain.IsRetryable(err) {
			break
		}
		s.logger.Warn().Err(err).Int("attempt", attempt).Str("perfume", perfumeName).Msg("Generation attempt failed, retrying")
		if attempt < s.maxAttempts {
			if err := s.backoff(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}
	}
	s.metrics.RecordCopyRun("failed")
	return "", lastErr
}

type copyFacts struct {
	PerfumeName string                 `json:"perfume_name"`
	BrandName   string                 `json:"brand_name"`
	BrandSlug   string                 `json:"brand_slug"`
	Notes       *domain.FragranceNotes `json:"notes"`
	Sources     []string               `json:"sources"`
}

func (s *CopyService) generateOnce(ctx context.Context, perfumeName, brandName string) (string, error) {
	notes := s.research(ctx, perfumeName, brandName)

	brandDisplay := brandName
	if brandDisplay == "" {
		if words := strings.Fields(perfumeName); len(words) > 0 {
			brandDisplay = words[0]
		}
	}

	facts := copyFacts{
		PerfumeName: perfumeName,
		BrandName:   brandDisplay,
		BrandSlug:   BrandSlug(brandDisplay),
		Notes:       notes,
		Sources:     notes.Sources,
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal copy facts: %w", err)
	}

	draft, err := s.model.Complete(ctx, creatorSystemPrompt, string(factsJSON))
	if err != nil {
		return "", fmt.Errorf("draft stage failed: %w", err)
	}

	final := s.validate(ctx, factsJSON, draft)
	return strings.TrimSpace(SanitizeHTML(final, perfumeName)), nil
}

// research runs the cheaper model first and escalates to the stronger one
// when the result is thin or uncited. A result with notes but no trusted
// citation is still used, with a degraded-confidence log. Research never
// fails the pipeline.
func (s *CopyService) research(ctx context.Context, perfumeName, brandName string) *domain.FragranceNotes {
	notes, err := s.researcher.FetchNotes(ctx, perfumeName, brandName, researchModel)
	if err == nil && notes.TotalNotes() >= 3 && notes.HasReliableSource() {
		return notes
	}

	pro, err := s.researcher.FetchNotes(ctx, perfumeName, brandName, researchFallbackModel)
	if err != nil {
		return domain.EmptyNotes()
	}
	if pro.TotalNotes() >= 3 && pro.HasReliableSource() {
		return pro
	}
	if pro.TotalNotes() >= 3 {
		s.logger.Warn().Str("perfume", perfumeName).Msg("Using notes from less reliable sources")
		return pro
	}
	return domain.EmptyNotes()
}

type validatorReport struct {
	OverallPass bool     `json:"overall_pass"`
	Failures    []string `json:"failures"`
	Corrected   struct {
		ContentHTML string `json:"content_html"`
	} `json:"corrected"`
}

// validate asks the model to check and correct the draft. Any failure in
// this stage silently falls back to the uncorrected draft.
func (s *CopyService) validate(ctx context.Context, factsJSON []byte, draft string) string {
	payload, err := json.Marshal(map[string]any{
		"facts":        json.RawMessage(factsJSON),
		"content_html": draft,
	})
	if err != nil {
		return draft
	}

	answer, err := s.model.CompleteJSON(ctx, validatorSystemPrompt, string(payload))
	if err != nil {
		s.logger.Debug().Err(err).Msg("Validation stage failed, keeping draft")
		return draft
	}

	var report validatorReport
	if err := json.Unmarshal([]byte(answer), &report); err != nil {
		s.logger.Debug().Err(err).Msg("Unparseable validation report, keeping draft")
		return draft
	}
	if report.Corrected.ContentHTML == "" {
		return draft
	}
	return report.Corrected.ContentHTML
}

func (s *CopyService) backoff(ctx context.Context, attempt int) error {
	delay := s.baseDelay * time.Duration(1<<(attempt-1))
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
