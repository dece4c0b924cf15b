// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

type fakeSource struct {
	name  string
	items []types.EvidenceItem
	err   error
	delay time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, _ types.QueryProfile, _ types.RetrievalConfig) ([]types.EvidenceItem, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func testProfile() types.QueryProfile {
	return types.QueryProfile{
		RawQuery:    "how long to treat community-acquired pneumonia",
		DiseaseTags: []string{"pneumonia"},
	}
}

func testRetrievalConfig() types.RetrievalConfig {
	return types.RetrievalConfig{
		HTTPConfig:    types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "evidence-engine-test"},
		MaxPerSource:  10,
		SourceTimeout: 2 * time.Second,
	}
}

func item(id, source string) types.EvidenceItem {
	return types.EvidenceItem{
		ID:         id,
		SourceName: source,
		Category:   types.CategoryArticle,
		Title:      "title for " + id,
	}
}

func TestRetrieve_MergesAllSources(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "a", items: []types.EvidenceItem{item("pmid:1", "a"), item("pmid:2", "a")}},
		&fakeSource{name: "b", items: []types.EvidenceItem{item("NCT001", "b")}},
	}

	var out strings.Builder
	result, err := Retrieve(context.Background(), testProfile(), sources, testRetrievalConfig(), &out)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(result.Items) != 3 {
		t.Errorf("got %d items, want 3", len(result.Items))
	}
	if result.SourceCounts["a"] != 2 || result.SourceCounts["b"] != 1 {
		t.Errorf("SourceCounts = %v, want a:2 b:1", result.SourceCounts)
	}
}

func TestRetrieve_SourceFailureIsIsolated(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "ok", items: []types.EvidenceItem{item("pmid:1", "ok")}},
		&fakeSource{name: "broken", err: errors.New("connection refused")},
	}

	var out strings.Builder
	result, err := Retrieve(context.Background(), testProfile(), sources, testRetrievalConfig(), &out)
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want partial success", err)
	}

	if len(result.Items) != 1 {
		t.Errorf("got %d items, want 1 from the healthy source", len(result.Items))
	}
	if !strings.Contains(out.String(), "warning: source broken failed") {
		t.Errorf("output %q missing failure warning", out.String())
	}
	if len(result.SourceErrors) != 1 {
		t.Errorf("SourceErrors = %v, want exactly one entry", result.SourceErrors)
	}
}

func TestRetrieve_SlowSourceTimesOut(t *testing.T) {
	cfg := testRetrievalConfig()
	cfg.SourceTimeout = 20 * time.Millisecond

	sources := []Source{
		&fakeSource{name: "fast", items: []types.EvidenceItem{item("pmid:1", "fast")}},
		&fakeSource{name: "slow", delay: 500 * time.Millisecond, items: []types.EvidenceItem{item("pmid:2", "slow")}},
	}

	var out strings.Builder
	result, err := Retrieve(context.Background(), testProfile(), sources, cfg, &out)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(result.Items) != 1 {
		t.Errorf("got %d items, want only the fast source's item", len(result.Items))
	}
	if !strings.Contains(out.String(), "warning: source slow failed") {
		t.Errorf("output %q missing timeout warning", out.String())
	}
}

func TestRetrieve_AllSourcesFail(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "a", err: errors.New("down")},
		&fakeSource{name: "b", err: errors.New("also down")},
	}

	var out strings.Builder
	result, err := Retrieve(context.Background(), testProfile(), sources, testRetrievalConfig(), &out)
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want empty result not error", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("got %d items, want 0", len(result.Items))
	}
	if len(result.SourceErrors) != 2 {
		t.Errorf("SourceErrors = %v, want two entries", result.SourceErrors)
	}
}

func TestRetrieve_EmptyQueryRejected(t *testing.T) {
	var out strings.Builder
	_, err := Retrieve(context.Background(), types.QueryProfile{}, []Source{&fakeSource{name: "a"}}, testRetrievalConfig(), &out)
	if err == nil {
		t.Fatal("Retrieve() with empty query should fail")
	}
}

func TestDeduplicate_FirstSeenWinsAnchorPromoted(t *testing.T) {
	first := item("pmid:1", "pubmed")
	first.Summary = ""
	second := item("pmid:1", "europepmc")
	second.Summary = "abstract text"
	second.IsAnchor = true
	second.Year = 2019

	merged, removed := Deduplicate([]types.EvidenceItem{first, second})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(merged) != 1 {
		t.Fatalf("got %d items, want 1", len(merged))
	}

	got := merged[0]
	if got.SourceName != "pubmed" {
		t.Errorf("SourceName = %q, first-seen record should win", got.SourceName)
	}
	if !got.IsAnchor {
		t.Error("anchor flag from the duplicate must be promoted onto the winner")
	}
	if got.Summary != "abstract text" {
		t.Errorf("Summary = %q, empty fields should be filled from the duplicate", got.Summary)
	}
	if got.Year != 2019 {
		t.Errorf("Year = %d, want 2019 filled from duplicate", got.Year)
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	in := []types.EvidenceItem{item("pmid:1", "a"), item("pmid:2", "a"), item("pmid:1", "b")}

	once, _ := Deduplicate(in)
	twice, removed := Deduplicate(once)

	if removed != 0 {
		t.Errorf("second pass removed %d items, want 0", removed)
	}
	if len(twice) != len(once) {
		t.Errorf("second pass changed length %d -> %d", len(once), len(twice))
	}
}

func TestMarkAnchors(t *testing.T) {
	profile := testProfile()
	profile.AnchorScenario = "cap-antibiotic-duration"

	items := []types.EvidenceItem{item("pmid:31573350", "pubmed"), item("pmid:999", "pubmed")}
	markAnchors(items, profile)

	if !items[0].IsAnchor {
		t.Error("registered anchor id should be flagged")
	}
	if items[1].IsAnchor {
		t.Error("unrelated item must not be flagged")
	}
}
