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

const pubmedEfetchFixture = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>31573350</PMID>
      <Article>
        <Journal><JournalIssue><PubDate><Year>2019</Year></PubDate></JournalIssue></Journal>
        <ArticleTitle>Diagnosis and Treatment of Adults with Community-acquired Pneumonia</ArticleTitle>
        <Abstract><AbstractText>Background text.</AbstractText><AbstractText>Recommendation text.</AbstractText></Abstract>
        <PublicationTypeList><PublicationType>Practice Guideline</PublicationType></PublicationTypeList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="doi">10.1164/rccm.201908-1581ST</ArticleId>
        <ArticleId IdType="pmc">PMC6812437</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

func TestPubMedSource_Search(t *testing.T) {
	var searchHits, fetchHits int

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searchHits++
		if got := r.URL.Query().Get("db"); got != "pubmed" {
			t.Errorf("esearch db = %q, want pubmed", got)
		}
		w.Write([]byte(`{"esearchresult":{"idlist":["31573350"]}}`))
	}))
	defer searchSrv.Close()

	fetchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchHits++
		if got := r.URL.Query().Get("id"); got != "31573350" {
			t.Errorf("efetch id = %q, want 31573350", got)
		}
		w.Write([]byte(pubmedEfetchFixture))
	}))
	defer fetchSrv.Close()

	origSearch, origFetch := pubmedSearchBase, pubmedFetchBase
	pubmedSearchBase, pubmedFetchBase = searchSrv.URL, fetchSrv.URL
	defer func() { pubmedSearchBase, pubmedFetchBase = origSearch, origFetch }()

	src := NewPubMedSource(searchSrv.Client(), "")
	items, err := src.Search(context.Background(), testProfile(), testRetrievalConfig())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if searchHits != 1 || fetchHits != 1 {
		t.Errorf("hits = %d/%d, want one esearch and one efetch", searchHits, fetchHits)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	got := items[0]
	if got.ID != "pmid:31573350" {
		t.Errorf("ID = %q, want pmid:31573350", got.ID)
	}
	if got.Category != types.CategoryGuideline {
		t.Errorf("Category = %q, want guideline", got.Category)
	}
	if !strings.Contains(got.Summary, "Background text.") || !strings.Contains(got.Summary, "Recommendation text.") {
		t.Errorf("Summary = %q, want both abstract segments joined", got.Summary)
	}
	if got.Year != 2019 {
		t.Errorf("Year = %d, want 2019", got.Year)
	}
	if got.URLParts.DOI != "10.1164/rccm.201908-1581ST" {
		t.Errorf("DOI = %q", got.URLParts.DOI)
	}
	if got.URLParts.SecondaryID != "PMC6812437" {
		t.Errorf("SecondaryID = %q, want PMCID", got.URLParts.SecondaryID)
	}
}

func TestPubMedSource_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"esearchresult":{"idlist":[]}}`))
	}))
	defer srv.Close()

	orig := pubmedSearchBase
	pubmedSearchBase = srv.URL
	defer func() { pubmedSearchBase = orig }()

	src := NewPubMedSource(srv.Client(), "")
	items, err := src.Search(context.Background(), testProfile(), testRetrievalConfig())
	if err != nil {
		t.Fatalf("Search() error = %v, empty result should not be an error", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestPubmedCategory(t *testing.T) {
	tests := []struct {
		name     string
		pubTypes []string
		want     types.Category
	}{
		{"guideline wins over review", []string{"Review", "Practice Guideline"}, types.CategoryGuideline},
		{"meta-analysis is review", []string{"Meta-Analysis", "Journal Article"}, types.CategoryReview},
		{"rct is trial", []string{"Randomized Controlled Trial"}, types.CategoryTrial},
		{"review wins over trial", []string{"Randomized Controlled Trial", "Systematic Review"}, types.CategoryReview},
		{"plain article", []string{"Journal Article"}, types.CategoryArticle},
		{"no types", nil, types.CategoryArticle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pubmedCategory(tt.pubTypes); got != tt.want {
				t.Errorf("pubmedCategory(%v) = %q, want %q", tt.pubTypes, got, tt.want)
			}
		})
	}
}
