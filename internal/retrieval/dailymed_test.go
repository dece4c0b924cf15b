// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const splXMLFixture = `<?xml version="1.0"?>
<document>
  <component><structuredBody>
    <component><section>
      <code code="34067-9"/>
      <title>INDICATIONS AND USAGE</title>
      <text>Indicated for nonvalvular atrial fibrillation.</text>
    </section></component>
    <component><section>
      <code code="34068-7"/>
      <text>5 mg orally twice daily.</text>
    </section></component>
    <component><section>
      <code code="99999-9"/>
      <text>Uncoded section that must be ignored.</text>
    </section></component>
  </structuredBody></component>
</document>`

func TestDailyMedSource_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/spls.json"):
			if got := r.URL.Query().Get("drug_name"); got != "apixaban" {
				t.Errorf("drug_name = %q, want apixaban", got)
			}
			w.Write([]byte(`{"data":[{"setid":"abc-123","title":"APIXABAN tablet","published_date":"2023-06-01"}]}`))
		case strings.HasSuffix(r.URL.Path, "/spls/abc-123.xml"):
			w.Write([]byte(splXMLFixture))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	orig := dailyMedBase
	dailyMedBase = srv.URL
	defer func() { dailyMedBase = orig }()

	profile := types.QueryProfile{
		RawQuery:     "apixaban dosing in atrial fibrillation",
		DecisionTags: []string{"apixaban"},
	}

	src := NewDailyMedSource(srv.Client())
	items, err := src.Search(context.Background(), profile, testRetrievalConfig())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	got := items[0]
	if got.ID != "spl:abc-123" {
		t.Errorf("ID = %q, want spl:abc-123", got.ID)
	}
	if got.Category != types.CategoryDrugInfo {
		t.Errorf("Category = %q, want drug_info", got.Category)
	}
	if !strings.Contains(got.Summary, "nonvalvular atrial fibrillation") {
		t.Errorf("Summary %q missing indications section", got.Summary)
	}
	if !strings.Contains(got.Summary, "5 mg orally twice daily") {
		t.Errorf("Summary %q missing dosage section", got.Summary)
	}
	if strings.Contains(got.Summary, "Uncoded section") {
		t.Errorf("Summary %q includes a section with an unknown LOINC code", got.Summary)
	}
	if idx := strings.Index(got.Summary, "indications and usage"); idx != 0 {
		t.Errorf("indications section should lead the summary, got %q", got.Summary)
	}
}

func TestDailyMedSource_NoDrugInProfile(t *testing.T) {
	src := NewDailyMedSource(http.DefaultClient)
	items, err := src.Search(context.Background(), testProfile(), testRetrievalConfig())
	if err != nil {
		t.Fatalf("Search() error = %v, no-drug profile must be a quiet no-op", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestDrugTerms(t *testing.T) {
	tests := []struct {
		name    string
		profile types.QueryProfile
		want    []string
	}{
		{
			"from decision tags",
			types.QueryProfile{RawQuery: "q", DecisionTags: []string{"apixaban", "anticoagulation-duration"}},
			[]string{"apixaban"},
		},
		{
			"from query words with punctuation",
			types.QueryProfile{RawQuery: "Should I stop warfarin, or switch?"},
			[]string{"warfarin"},
		},
		{
			"deduplicated and sorted",
			types.QueryProfile{RawQuery: "warfarin vs apixaban", DecisionTags: []string{"apixaban"}},
			[]string{"apixaban", "warfarin"},
		},
		{
			"no drugs",
			types.QueryProfile{RawQuery: "pneumonia treatment duration"},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drugTerms(tt.profile)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("drugTerms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyMedSource_PartialDrugFailure(t *testing.T) {
	// The apixaban search breaks; rivaroxaban's label must still come
	// back. One bad drug degrades the source, never empties it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/spls.json"):
			if r.URL.Query().Get("drug_name") == "apixaban" {
				http.Error(w, "upstream error", http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"data":[{"setid":"riv-456","title":"RIVAROXABAN tablet","published_date":"2023-06-01"}]}`))
		case strings.HasSuffix(r.URL.Path, "/spls/riv-456.xml"):
			w.Write([]byte(splXMLFixture))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	orig := dailyMedBase
	dailyMedBase = srv.URL
	defer func() { dailyMedBase = orig }()

	profile := types.QueryProfile{
		RawQuery:     "anticoagulant choice in atrial fibrillation",
		DecisionTags: []string{"apixaban", "rivaroxaban"},
	}

	src := NewDailyMedSource(srv.Client())
	items, err := src.Search(context.Background(), profile, testRetrievalConfig())
	if err != nil {
		t.Fatalf("Search() error = %v, want partial results", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ID != "spl:riv-456" {
		t.Errorf("ID = %q, want spl:riv-456", items[0].ID)
	}
}

func TestDailyMedSource_AllDrugsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	orig := dailyMedBase
	dailyMedBase = srv.URL
	defer func() { dailyMedBase = orig }()

	profile := types.QueryProfile{
		RawQuery:     "apixaban dosing",
		DecisionTags: []string{"apixaban"},
	}

	src := NewDailyMedSource(srv.Client())
	if _, err := src.Search(context.Background(), profile, testRetrievalConfig()); err == nil {
		t.Fatal("Search() must error when every drug failed")
	}
}
