// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestClinicalTrialsSource_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query.term"); got == "" {
			t.Error("query.term parameter missing")
		}
		w.Write([]byte(`{"studies":[
			{"protocolSection":{
				"identificationModule":{"nctId":"NCT04280705","briefTitle":"Adaptive Treatment Trial"},
				"descriptionModule":{"briefSummary":"A randomized trial."},
				"statusModule":{"startDateStruct":{"date":"2020-02-21"}}
			}},
			{"protocolSection":{
				"identificationModule":{"briefTitle":"record without an id"}
			}}
		]}`))
	}))
	defer srv.Close()

	orig := clinicalTrialsBase
	clinicalTrialsBase = srv.URL
	defer func() { clinicalTrialsBase = orig }()

	src := &ClinicalTrialsSource{Client: srv.Client()}
	items, err := src.Search(context.Background(), testProfile(), testRetrievalConfig())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (record without NCT id dropped)", len(items))
	}
	got := items[0]
	if got.ID != "NCT04280705" {
		t.Errorf("ID = %q, want NCT04280705", got.ID)
	}
	if got.Category != types.CategoryTrial {
		t.Errorf("Category = %q, want trial", got.Category)
	}
	if got.Year != 2020 {
		t.Errorf("Year = %d, want 2020", got.Year)
	}
	if got.CitationURL() != "https://clinicaltrials.gov/study/NCT04280705" {
		t.Errorf("CitationURL = %q", got.CitationURL())
	}
}

func TestCtgovYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2020-02-21", 2020},
		{"2020-02", 2020},
		{"2020", 2020},
		{"", 0},
		{"n/a", 0},
	}
	for _, tt := range tests {
		if got := ctgovYear(tt.date); got != tt.want {
			t.Errorf("ctgovYear(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}
