package ai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fragrance-sync-layer/internal/infrastructure/ai"

	"github.com/rs/zerolog"
)

func notesServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req["search_recency_filter"] != "year" {
			t.Errorf("recency filter missing: %v", req)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestFetchNotesCleansAnswer(t *testing.T) {
	content := "```json\n" + `{
		"top": ["bergamot (citrusy)", "  pink   pepper ", "x", "saffron"],
		"heart": ["rose"],
		"base": ["oud", "amber"],
		"sources": ["https://www.fragrantica.com/perfume/x", "not a url", "https://parfumo.net/y"]
	}` + "\n```"
	server := notesServer(t, content)
	defer server.Close()

	client := ai.NewPerplexityClientWithBaseURL("key", server.URL, zerolog.Nop())
	notes, err := client.FetchNotes(context.Background(), "Oud Royale", "Maison Test", "sonar")
	if err != nil {
		t.Fatal(err)
	}

	// Parenthetical stripped, whitespace collapsed, title-cased, 1-char note dropped.
	if len(notes.Top) != 3 || notes.Top[0] != "Bergamot" || notes.Top[1] != "Pink Pepper" || notes.Top[2] != "Saffron" {
		t.Fatalf("top notes: %v", notes.Top)
	}
	if len(notes.Sources) != 2 {
		t.Fatalf("non-URL sources must be dropped: %v", notes.Sources)
	}
	if !notes.HasReliableSource() {
		t.Fatal("fragrantica source should count as reliable")
	}
}

func TestFetchNotesCapsTiers(t *testing.T) {
	many := make([]string, 12)
	for i := range many {
		many[i] = fmt.Sprintf("note %d", i)
	}
	payload, _ := json.Marshal(map[string]any{"top": many, "heart": []string{}, "base": []string{}, "sources": []string{}})
	server := notesServer(t, string(payload))
	defer server.Close()

	client := ai.NewPerplexityClientWithBaseURL("key", server.URL, zerolog.Nop())
	notes, err := client.FetchNotes(context.Background(), "Oud Royale", "", "sonar")
	if err != nil {
		t.Fatal(err)
	}
	if len(notes.Top) != 8 {
		t.Fatalf("tiers cap at 8, got %d", len(notes.Top))
	}
}

func TestFetchNotesDegradesToEmpty(t *testing.T) {
	// Provider failure.
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	client := ai.NewPerplexityClientWithBaseURL("key", failing.URL, zerolog.Nop())
	notes, err := client.FetchNotes(context.Background(), "Oud Royale", "", "sonar")
	if err != nil {
		t.Fatalf("provider failure must not error: %v", err)
	}
	if notes.TotalNotes() != 0 {
		t.Fatalf("want empty notes, got %+v", notes)
	}

	// Unparseable answer.
	garbage := notesServer(t, "I could not find any structured data, sorry.")
	defer garbage.Close()

	client = ai.NewPerplexityClientWithBaseURL("key", garbage.URL, zerolog.Nop())
	notes, err = client.FetchNotes(context.Background(), "Oud Royale", "", "sonar")
	if err != nil || notes.TotalNotes() != 0 {
		t.Fatalf("garbage answer must degrade to empty notes: %v %+v", err, notes)
	}

	// No API key configured at all.
	client = ai.NewPerplexityClient("", zerolog.Nop())
	notes, err = client.FetchNotes(context.Background(), "Oud Royale", "", "sonar")
	if err != nil || notes.TotalNotes() != 0 {
		t.Fatalf("missing key must short-circuit to empty notes: %v %+v", err, notes)
	}
}
