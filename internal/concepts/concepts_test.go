package concepts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Coffee", "coffee", true},
		{"  Morning   Coffee ", "morning coffee", true},
		{"one two three four", "one two three four", true},
		{"one two three four five", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, c := range cases {
		got, ok := Normalize(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestLocalExtractorPhrases(t *testing.T) {
	e := NewLocalExtractor(Config{MaxConcepts: 20})

	got, err := e.Extract(context.Background(), "The espresso machine is broken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"espresso", "machine", "espresso machine", "broken"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestLocalExtractorStopwordsBreakBigrams(t *testing.T) {
	e := NewLocalExtractor(Config{})

	got, _ := e.Extract(context.Background(), "coffee and milk")
	// "and" separates the content words, so no "coffee milk" bigram.
	want := []string{"coffee", "milk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestLocalExtractorEmptyInput(t *testing.T) {
	e := NewLocalExtractor(Config{})
	got, err := e.Extract(context.Background(), "the of and")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Extract = %v, want no concepts", got)
	}
}

func TestLocalExtractorBounded(t *testing.T) {
	e := NewLocalExtractor(Config{MaxConcepts: 3})
	got, _ := e.Extract(context.Background(), "alpha beta gamma delta epsilon zeta")
	if len(got) != 3 {
		t.Errorf("got %d concepts, want 3", len(got))
	}
}

func TestAPIExtractor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extract", func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Input == "" {
			http.Error(w, "empty input", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(apiResponse{
			Concepts: []string{"Espresso Machine", "espresso machine", "BROKEN", "way too many words in here"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewAPIExtractor(Config{Endpoint: srv.URL, Model: "test-model"})
	got, err := e.Extract(context.Background(), "the espresso machine is broken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Normalized, deduped, over-long phrases discarded.
	want := []string{"espresso machine", "broken"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestAPIExtractorEmptyText(t *testing.T) {
	e := NewAPIExtractor(Config{Endpoint: "http://unused"})
	got, err := e.Extract(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Extract = %v, want nil for empty text", got)
	}
}

func TestAPIExtractorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewAPIExtractor(Config{Endpoint: srv.URL})
	if _, err := e.Extract(context.Background(), "anything"); err == nil {
		t.Error("expected error for server failure")
	}
}
