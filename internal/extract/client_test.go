package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFilter(t *testing.T) {
	in := []Candidate{
		{Title: "Buy milk", Notes: "2%"},
		{Title: "   ", Notes: "orphaned notes"},
		{Title: "", Notes: ""},
		{Title: "  Call the plumber  ", Notes: "  about the sink  "},
	}

	got := Filter(in)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Title != "Buy milk" {
		t.Errorf("title = %q, want %q", got[0].Title, "Buy milk")
	}
	if got[1].Title != "Call the plumber" {
		t.Errorf("title = %q, want %q", got[1].Title, "Call the plumber")
	}
	if got[1].Notes != "about the sink" {
		t.Errorf("notes = %q, want %q", got[1].Notes, "about the sink")
	}
}

func TestFilterEmpty(t *testing.T) {
	if got := Filter(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		content, _ := json.Marshal(extractionResult{
			Tasks: []Candidate{
				{Title: "Schedule dentist"},
				{Title: ""},
			},
		})
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": string(content)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := c.Extract(context.Background(), "I need to schedule the dentist")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Title != "Schedule dentist" {
		t.Errorf("title = %q", got[0].Title)
	}
}

func TestExtractUnconfigured(t *testing.T) {
	c := NewClient("")
	if _, err := c.Extract(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestExtractAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	if _, err := c.Extract(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
