// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.CacheConfig{CacheDir: t.TempDir(), MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testPackage(query string) types.EvidencePackage {
	profile := types.QueryProfile{
		RawQuery:           query,
		DiseaseTags:        []string{"community-acquired-pneumonia"},
		DecisionTags:       []string{"antibiotic-duration"},
		PrimaryDiseaseTag:  "community-acquired-pneumonia",
		PrimaryDecisionTag: "antibiotic-duration",
	}
	items := []types.ScoredItem{
		{
			Item: types.EvidenceItem{
				ID:         "pmid:31573350",
				SourceName: "pubmed",
				Category:   types.CategoryGuideline,
				Title:      "Diagnosis and Treatment of Adults with Community-acquired Pneumonia",
				Summary:    "Official clinical practice guideline.",
				Year:       2019,
				IsAnchor:   true,
			},
			RelevanceScore: 100,
			Tier:           1,
		},
		{
			Item: types.EvidenceItem{
				ID:         "pmid:2001",
				SourceName: "pubmed",
				Category:   types.CategoryTrial,
				Title:      "Short-course antibiotic therapy trial",
				Summary:    "Randomized trial of treatment duration.",
				Year:       2021,
			},
			RelevanceScore: 70,
			Tier:           3,
		},
	}
	chunks := []types.Chunk{
		{
			ID:           "pmid:31573350:results:0",
			SourceItemID: "pmid:31573350",
			Section:      types.SectionResults,
			Text:         "A five day course of amoxicillin was noninferior to longer treatment.",
			Score:        0.91,
			HasScore:     true,
		},
		{
			ID:           "pmid:2001:discussion:0",
			SourceItemID: "pmid:2001",
			Section:      types.SectionDiscussion,
			Text:         "Procalcitonin guidance shortened antibiotic exposure without harm.",
			Score:        0.84,
			HasScore:     true,
		},
	}
	return types.EvidencePackage{
		Profile: profile,
		Curated: types.CuratedEvidenceSet{Items: items},
		Chunks:  chunks,
		Sufficiency: types.SufficiencyScore{
			Score:       80,
			Level:       types.SufficiencyStrong,
			AnchorCount: 1,
		},
		CitationWhitelist: []string{"pmid:2001", "pmid:31573350"},
		BuiltAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// --- tests ---

func TestSaveAndLookup(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	pkg := testPackage("how long should antibiotics be given for CAP")

	id, err := store.Save(ctx, pkg)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty package ID")
	}

	got, found, err := store.Lookup(ctx, pkg.Profile)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("package not found after save")
	}
	if got.Profile.RawQuery != pkg.Profile.RawQuery {
		t.Errorf("raw query = %q, want %q", got.Profile.RawQuery, pkg.Profile.RawQuery)
	}
	if len(got.Curated.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Curated.Items))
	}
	if !got.Curated.Items[0].Item.IsAnchor {
		t.Error("anchor flag lost on round trip")
	}
	if len(got.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got.Chunks))
	}
	if got.Sufficiency.Level != types.SufficiencyStrong {
		t.Errorf("sufficiency level = %q", got.Sufficiency.Level)
	}
	if len(got.CitationWhitelist) != 2 {
		t.Errorf("whitelist = %v", got.CitationWhitelist)
	}
}

func TestLookupMiss(t *testing.T) {
	store := testStore(t)

	_, found, err := store.Lookup(context.Background(), types.QueryProfile{RawQuery: "never asked"})
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("expected miss for uncached query")
	}
}

func TestSaveReplacesPreviousRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	pkg := testPackage("cap duration")

	if _, err := store.Save(ctx, pkg); err != nil {
		t.Fatal(err)
	}

	// Second run of the same question with a smaller set.
	pkg.Curated.Items = pkg.Curated.Items[:1]
	pkg.Chunks = pkg.Chunks[:1]
	if _, err := store.Save(ctx, pkg); err != nil {
		t.Fatal(err)
	}

	got, found, err := store.Lookup(ctx, pkg.Profile)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("package not found")
	}
	if len(got.Curated.Items) != 1 {
		t.Errorf("expected 1 item after replace, got %d", len(got.Curated.Items))
	}
	if len(got.Chunks) != 1 {
		t.Errorf("expected 1 chunk after replace, got %d", len(got.Chunks))
	}
}

func TestPackageIDNormalizesQuery(t *testing.T) {
	a := PackageID(types.QueryProfile{RawQuery: "  CAP Antibiotic Duration "})
	b := PackageID(types.QueryProfile{RawQuery: "cap antibiotic duration"})
	if a != b {
		t.Errorf("IDs differ for equivalent queries: %s vs %s", a, b)
	}

	c := PackageID(types.QueryProfile{RawQuery: "a different question"})
	if a == c {
		t.Error("distinct queries share an ID")
	}
}

func TestSearchChunks(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, testPackage("cap duration")); err != nil {
		t.Fatal(err)
	}

	hits, err := store.Search(ctx, "amoxicillin", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].SourceItemID != "pmid:31573350" {
		t.Errorf("hit source = %q", hits[0].SourceItemID)
	}
	if !strings.Contains(hits[0].Snippet, "amoxicillin") {
		t.Errorf("snippet missing match marker: %q", hits[0].Snippet)
	}

	// Punctuation in the query must not break FTS syntax.
	if _, err := store.Search(ctx, `"amoxicillin" (5-day)`, 5); err != nil {
		t.Fatalf("quoted query failed: %v", err)
	}

	if _, err := store.Search(ctx, "   ", 5); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestSearchUpdatedChunksReflectReplace(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	pkg := testPackage("cap duration")

	if _, err := store.Save(ctx, pkg); err != nil {
		t.Fatal(err)
	}

	pkg.Chunks = []types.Chunk{{
		ID:           "pmid:31573350:results:0",
		SourceItemID: "pmid:31573350",
		Section:      types.SectionResults,
		Text:         "Doxycycline was used in the penicillin allergic cohort.",
		Score:        0.7,
		HasScore:     true,
	}}
	if _, err := store.Save(ctx, pkg); err != nil {
		t.Fatal(err)
	}

	hits, err := store.Search(ctx, "amoxicillin", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale chunk still indexed: %v", hits)
	}

	hits, err = store.Search(ctx, "doxycycline", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit for replacement chunk, got %d", len(hits))
	}
}

func TestList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := testPackage("cap duration")
	second := testPackage("afib anticoagulation choice")
	second.BuiltAt = first.BuiltAt.Add(time.Hour)

	if _, err := store.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(list))
	}
	if list[0].RawQuery != "afib anticoagulation choice" {
		t.Errorf("newest first violated: %q", list[0].RawQuery)
	}
	if list[0].Items != 2 || list[0].Chunks != 2 {
		t.Errorf("counts = %d items, %d chunks", list[0].Items, list[0].Chunks)
	}
}

func TestExportYAML(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, testPackage("cap duration"))
	if err != nil {
		t.Fatal(err)
	}

	path, err := store.ExportYAML(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "pmid:31573350") {
		t.Error("export missing anchor item")
	}
	if filepath.Ext(path) != ".yaml" {
		t.Errorf("unexpected export path %q", path)
	}

	if _, err := store.ExportYAML(ctx, "nope"); err == nil {
		t.Error("expected error for unknown package ID")
	}
}
