// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestWebSearchSource_RequiresAPIKey(t *testing.T) {
	src := &WebSearchSource{Client: http.DefaultClient}
	cfg := testRetrievalConfig()
	cfg.SerpAPIKey = ""

	if _, err := src.Search(context.Background(), testProfile(), cfg); err == nil {
		t.Fatal("Search() without an API key should fail loudly, not skip silently")
	}
}

func TestWebSearchSource_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		w.Write([]byte(`{"organic_results":[
			{"title":"CAP review","link":"https://example.org/cap-review","snippet":"Five days suffice."},
			{"title":"no link","snippet":"dropped"}
		]}`))
	}))
	defer srv.Close()

	orig := webSearchBase
	webSearchBase = srv.URL
	defer func() { webSearchBase = orig }()

	cfg := testRetrievalConfig()
	cfg.SerpAPIKey = "test-key"

	src := &WebSearchSource{Client: srv.Client()}
	items, err := src.Search(context.Background(), testProfile(), cfg)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (linkless result dropped)", len(items))
	}

	got := items[0]
	if !strings.HasPrefix(got.ID, "web:") {
		t.Errorf("ID = %q, want web: prefix", got.ID)
	}
	if got.Category != types.CategoryArticle {
		t.Errorf("Category = %q, want article", got.Category)
	}
	if got.CitationURL() != "https://example.org/cap-review" {
		t.Errorf("CitationURL = %q, want the result page URL", got.CitationURL())
	}
}

func TestWebResultID_Stable(t *testing.T) {
	a := webResultID("https://example.org/x")
	b := webResultID("https://example.org/x")
	c := webResultID("https://example.org/y")
	if a != b {
		t.Error("same URL must produce the same id")
	}
	if a == c {
		t.Error("different URLs must produce different ids")
	}
}
