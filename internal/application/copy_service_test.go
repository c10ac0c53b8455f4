package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fragrance-sync-layer/internal/application"
	"fragrance-sync-layer/internal/domain"

	"github.com/rs/zerolog"
)

type fakeResearcher struct {
	byModel map[string]*domain.FragranceNotes
	calls   []string
}

func (f *fakeResearcher) FetchNotes(ctx context.Context, perfumeName, brandName, model string) (*domain.FragranceNotes, error) {
	f.calls = append(f.calls, model)
	if notes, ok := f.byModel[model]; ok {
		return notes, nil
	}
	return domain.EmptyNotes(), nil
}

type fakeChatModel struct {
	draft        string
	draftErrs    []error
	validated    string
	validateErr  error
	completeCnt  int
	lastUserJSON string
}

func (f *fakeChatModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastUserJSON = userPrompt
	f.completeCnt++
	if len(f.draftErrs) > 0 {
		err := f.draftErrs[0]
		f.draftErrs = f.draftErrs[1:]
		return "", err
	}
	return f.draft, nil
}

func (f *fakeChatModel) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if f.validateErr != nil {
		return "", f.validateErr
	}
	return f.validated, nil
}

func newCopyService(r *fakeResearcher, m *fakeChatModel) *application.CopyService {
	return application.NewCopyServiceWithOptions(r, m, &fakeMetrics{}, zerolog.Nop(), 3, 0)
}

func reliableNotes() *domain.FragranceNotes {
	return &domain.FragranceNotes{
		Top:     []string{"Bergamot", "Pink Pepper"},
		Heart:   []string{"Rose"},
		Base:    []string{"Oud"},
		Sources: []string{"https://www.fragrantica.com/perfume/x"},
	}
}

func TestGenerateUsesCheapModelWhenReliable(t *testing.T) {
	r := &fakeResearcher{byModel: map[string]*domain.FragranceNotes{"sonar": reliableNotes()}}
	m := &fakeChatModel{
		draft:     "<h2>Oud Royale</h2><p>Lovely.</p>",
		validated: `{"overall_pass":true,"failures":[],"corrected":{"content_html":"<h2>Oud Royale</h2><p>Corrected.</p>"}}`,
	}
	svc := newCopyService(r, m)

	html, err := svc.Generate(context.Background(), "Oud Royale", "Maison Test")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 1 || r.calls[0] != "sonar" {
		t.Fatalf("reliable sonar result must not escalate: %v", r.calls)
	}
	if !strings.Contains(html, "Corrected.") {
		t.Fatalf("validator correction should be used: %q", html)
	}
}

func TestGenerateEscalatesToProModel(t *testing.T) {
	r := &fakeResearcher{byModel: map[string]*domain.FragranceNotes{"sonar-pro": reliableNotes()}}
	m := &fakeChatModel{draft: "<h2>Oud Royale</h2>", validated: `{}`}
	svc := newCopyService(r, m)

	if _, err := svc.Generate(context.Background(), "Oud Royale", ""); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 2 || r.calls[1] != "sonar-pro" {
		t.Fatalf("thin sonar result should escalate: %v", r.calls)
	}
}

func TestGenerateEmptyNotesStillProducesCopy(t *testing.T) {
	r := &fakeResearcher{byModel: map[string]*domain.FragranceNotes{}}
	m := &fakeChatModel{
		draft:       "<p>No notes known.</p><p>Discover more from <a href=\"/collections/maison-test\">Maison Test perfumes</a></p>",
		validateErr: errors.New("validator down"),
	}
	svc := newCopyService(r, m)

	html, err := svc.Generate(context.Background(), "Oud Royale", "Maison Test")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h2>Oud Royale</h2>") {
		t.Fatalf("mandatory heading missing: %q", html)
	}
	if !strings.Contains(html, `/collections/maison-test`) {
		t.Fatalf("internal link missing: %q", html)
	}
}

func TestGenerateValidatorFailureFallsBackToDraft(t *testing.T) {
	r := &fakeResearcher{byModel: map[string]*domain.FragranceNotes{"sonar": reliableNotes()}}
	m := &fakeChatModel{
		draft:     "<h2>Oud Royale</h2><p>Draft body.</p>",
		validated: "not json at all",
	}
	svc := newCopyService(r, m)

	html, err := svc.Generate(context.Background(), "Oud Royale", "Maison Test")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "Draft body.") {
		t.Fatalf("draft should survive a broken validator: %q", html)
	}
}

func TestGenerateRetriesRateLimits(t *testing.T) {
	r := &fakeResearcher{byModel: map[string]*domain.FragranceNotes{"sonar": reliableNotes()}}
	m := &fakeChatModel{
		draft:     "<h2>Oud Royale</h2>",
		validated: `{}`,
		draftErrs: []error{&domain.RateLimitedError{Platform: "openai"}},
	}
	svc := newCopyService(r, m)

	if _, err := svc.Generate(context.Background(), "Oud Royale", ""); err != nil {
		t.Fatalf("one rate limit should be retried away: %v", err)
	}
	if m.completeCnt != 2 {
		t.Fatalf("want 2 draft attempts, got %d", m.completeCnt)
	}
}

func TestGenerateDoesNotRetryHardErrors(t *testing.T) {
	r := &fakeResearcher{byModel: map[string]*domain.FragranceNotes{"sonar": reliableNotes()}}
	m := &fakeChatModel{
		draftErrs: []error{
			&domain.UpstreamError{Platform: "openai", Status: 401, Body: "bad key"},
			nil,
		},
	}
	svc := newCopyService(r, m)

	if _, err := svc.Generate(context.Background(), "Oud Royale", ""); err == nil {
		t.Fatal("a 401 must propagate, not retry")
	}
	if m.completeCnt != 1 {
		t.Fatalf("want 1 draft attempt, got %d", m.completeCnt)
	}
}

func TestSanitizeHTML(t *testing.T) {
	in := `<script>alert(1)</script><h2>Oud Royale</h2><div><p>Body <strong>text</strong></p></div><em>x</em>`
	out := application.SanitizeHTML(in, "Oud Royale")
	for _, banned := range []string{"<script", "<div>", "</div>", "<em>"} {
		if strings.Contains(out, banned) {
			t.Errorf("%q should be stripped: %q", banned, out)
		}
	}
	if !strings.Contains(out, "<strong>text</strong>") {
		t.Errorf("allowed tags must survive: %q", out)
	}
	if strings.Count(out, "<h2>Oud Royale</h2>") != 1 {
		t.Errorf("heading must appear exactly once: %q", out)
	}

	out = application.SanitizeHTML("<p>No heading here.</p>", "Oud Royale")
	if !strings.HasPrefix(out, "<h2>Oud Royale</h2>") {
		t.Errorf("missing heading must be prepended: %q", out)
	}
}

func TestBrandSlug(t *testing.T) {
	cases := map[string]string{
		"Maison Test":       "maison-test",
		"Dolce & Gabbana":   "dolce-and-gabbana",
		"  Tom's  Fragran!": "toms-fragran",
		"":                  "fragrances",
		"A+B":               "aandb",
	}
	for in, want := range cases {
		if got := application.BrandSlug(in); got != want {
			t.Errorf("BrandSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
