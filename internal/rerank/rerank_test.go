// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

type fakeReranker struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, candidates []Candidate, _ int, _ float64) ([]Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []Result
	for _, c := range candidates {
		if score, ok := f.scores[c.ID]; ok {
			out = append(out, Result{ID: c.ID, Score: score})
		}
	}
	return out, nil
}

func scoredItem(id string, cat types.Category, relevance int) types.ScoredItem {
	return types.ScoredItem{
		Item: types.EvidenceItem{
			ID:         id,
			SourceName: "pubmed",
			Category:   cat,
			Title:      "title " + id,
			Summary:    "summary " + id,
		},
		RelevanceScore: relevance,
		Tier:           cat.Tier(),
	}
}

func rerankTestConfig() types.RerankConfig {
	return types.RerankConfig{
		Categories: map[types.Category]types.CategoryRerankConfig{
			types.CategoryArticle: {TopK: 2, MinScore: 0.3},
			types.CategoryTrial:   {TopK: 3, MinScore: 0.1},
		},
	}
}

func TestByCategory_AppliesCuts(t *testing.T) {
	rr := &fakeReranker{scores: map[string]float64{
		"pmid:1": 0.9,
		"pmid:2": 0.5,
		"pmid:3": 0.4, // above floor but beyond top-2
		"pmid:4": 0.1, // below article floor
	}}

	pool := []types.ScoredItem{
		scoredItem("pmid:4", types.CategoryArticle, 80),
		scoredItem("pmid:2", types.CategoryArticle, 70),
		scoredItem("pmid:1", types.CategoryArticle, 60),
		scoredItem("pmid:3", types.CategoryArticle, 50),
	}

	var out strings.Builder
	got := ByCategory(context.Background(), rr, types.QueryProfile{RawQuery: "q"}, pool, rerankTestConfig(), &out)

	if len(got) != 2 {
		t.Fatalf("got %d items, want top-2 for articles", len(got))
	}
	if got[0].Item.ID != "pmid:1" || got[1].Item.ID != "pmid:2" {
		t.Errorf("order = [%s %s], want semantic descending [pmid:1 pmid:2]", got[0].Item.ID, got[1].Item.ID)
	}
	for _, s := range got {
		if !s.HasSemantic {
			t.Errorf("item %s missing semantic score", s.Item.ID)
		}
	}
}

func TestByCategory_AnchorSurvivesCuts(t *testing.T) {
	rr := &fakeReranker{scores: map[string]float64{
		"pmid:1": 0.9,
		"pmid:2": 0.8,
		// anchor scored below the floor
		"pmid:anchor": 0.05,
	}}

	anchor := scoredItem("pmid:anchor", types.CategoryArticle, 100)
	anchor.Item.IsAnchor = true
	pool := []types.ScoredItem{
		scoredItem("pmid:1", types.CategoryArticle, 60),
		scoredItem("pmid:2", types.CategoryArticle, 60),
		anchor,
	}

	var out strings.Builder
	got := ByCategory(context.Background(), rr, types.QueryProfile{RawQuery: "q"}, pool, rerankTestConfig(), &out)

	found := false
	for _, s := range got {
		if s.Item.ID == "pmid:anchor" {
			found = true
		}
	}
	if !found {
		t.Error("anchor must survive the semantic floor")
	}
}

func TestByCategory_DegradesToTagOrdering(t *testing.T) {
	rr := &fakeReranker{err: errors.New("model endpoint down")}

	pool := []types.ScoredItem{
		scoredItem("pmid:low", types.CategoryArticle, 30),
		scoredItem("pmid:high", types.CategoryArticle, 90),
		scoredItem("pmid:mid", types.CategoryArticle, 60),
	}

	var out strings.Builder
	got := ByCategory(context.Background(), rr, types.QueryProfile{RawQuery: "q"}, pool, rerankTestConfig(), &out)

	if len(got) != 2 {
		t.Fatalf("got %d items, degraded mode should still clip to top-2", len(got))
	}
	if got[0].Item.ID != "pmid:high" || got[1].Item.ID != "pmid:mid" {
		t.Errorf("order = [%s %s], want tag-relevance descending", got[0].Item.ID, got[1].Item.ID)
	}
	for _, s := range got {
		if s.HasSemantic {
			t.Errorf("item %s claims a semantic score in degraded mode", s.Item.ID)
		}
	}
	if !strings.Contains(out.String(), "warning: reranker unavailable") {
		t.Errorf("output %q missing degradation warning", out.String())
	}
}

func TestByCategory_PerCategoryIsolation(t *testing.T) {
	// Fail only when scoring trials: the article category must still get
	// semantic scores.
	rr := &categoryFailingReranker{failFor: "title NCT"}

	pool := []types.ScoredItem{
		scoredItem("pmid:1", types.CategoryArticle, 80),
		scoredItem("NCT001", types.CategoryTrial, 70),
	}

	var out strings.Builder
	got := ByCategory(context.Background(), rr, types.QueryProfile{RawQuery: "q"}, pool, rerankTestConfig(), &out)

	if len(got) != 2 {
		t.Fatalf("got %d items, want both categories represented", len(got))
	}
	for _, s := range got {
		switch s.Item.Category {
		case types.CategoryArticle:
			if !s.HasSemantic {
				t.Error("article should have been semantically scored")
			}
		case types.CategoryTrial:
			if s.HasSemantic {
				t.Error("trial category failed and must be tag-ordered only")
			}
		}
	}
}

type categoryFailingReranker struct {
	failFor string
}

func (f *categoryFailingReranker) Rerank(_ context.Context, _ string, candidates []Candidate, _ int, _ float64) ([]Result, error) {
	for _, c := range candidates {
		if strings.Contains(c.Text, f.failFor) {
			return nil, fmt.Errorf("simulated failure")
		}
	}
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{ID: c.ID, Score: 0.9}
	}
	return out, nil
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"under limit", "short", 10, "short"},
		{"exact limit", "exact", 5, "exact"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"no limit", "anything", 0, "anything"},
		// "é" is two bytes; cutting at 3 would split the second rune.
		{"multibyte boundary", "aéé", 3, "aé"},
		// "世" is three bytes; a two-byte budget fits no full rune.
		{"multibyte head", "世界", 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.text, tt.limit)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate(%q, %d) produced invalid UTF-8", tt.text, tt.limit)
			}
		})
	}
}
