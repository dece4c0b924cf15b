// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"strings"
	"testing"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain sentences", "First sentence. Second sentence. Third one.", 3},
		{"version number not split", "Treated with drug v1.5 daily. Outcomes improved.", 2},
		{"question and exclamation", "Does it work? It does! Final note.", 3},
		{"empty", "   ", 0},
		{"single no terminator", "no terminal punctuation here", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if len(got) != tt.want {
				t.Errorf("SplitSentences() = %d sentences %q, want %d", len(got), got, tt.want)
			}
		})
	}
}

func TestSectionTypeForHeading(t *testing.T) {
	tests := []struct {
		heading string
		want    types.SectionType
	}{
		{"RESULTS", types.SectionResults},
		{"Results and Discussion", types.SectionResults},
		{"Discussion", types.SectionDiscussion},
		{"Materials and Methods", types.SectionMethods},
		{"Study Design", types.SectionMethods},
		{"Background", types.SectionIntroduction},
		{"Conclusions", types.SectionConclusion},
		{"Funding Statement", types.SectionOther},
	}
	for _, tt := range tests {
		if got := SectionTypeForHeading(tt.heading); got != tt.want {
			t.Errorf("SectionTypeForHeading(%q) = %q, want %q", tt.heading, got, tt.want)
		}
	}
}

func TestSplitSections(t *testing.T) {
	text := "Some preamble text here.\n" +
		"Methods\n" +
		"We enrolled 500 patients.\n" +
		"Results\n" +
		"Five days was non-inferior.\n" +
		"Acknowledgements of No Consequence That Run Longer Than Sixty Characters\n" +
		"Thanks everyone."

	sections := SplitSections(text)
	if len(sections) != 3 {
		t.Fatalf("got %d sections %v, want 3", len(sections), sections)
	}
	if sections[0].Type != types.SectionOther {
		t.Errorf("preamble type = %q, want other", sections[0].Type)
	}
	if sections[1].Type != types.SectionMethods || !strings.Contains(sections[1].Text, "500 patients") {
		t.Errorf("section 1 = %+v, want methods body", sections[1])
	}
	if sections[2].Type != types.SectionResults || !strings.Contains(sections[2].Text, "non-inferior") {
		t.Errorf("section 2 = %+v, want results including trailing unrecognized text", sections[2])
	}
}

func sentenceRun(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(" ends here. ")
	}
	return b.String()
}

func TestChunkSections_QuotasAndOverlap(t *testing.T) {
	sections := []RawSection{
		{Type: types.SectionResults, Text: sentenceRun(30)},
		{Type: types.SectionMethods, Text: sentenceRun(30)},
	}

	chunks := ChunkSections("pmid:1", sections)

	var results, methods []types.Chunk
	for _, c := range chunks {
		switch c.Section {
		case types.SectionResults:
			results = append(results, c)
		case types.SectionMethods:
			methods = append(methods, c)
		}
	}
	if len(results) != 4 {
		t.Errorf("results chunks = %d, want quota 4", len(results))
	}
	if len(methods) != 1 {
		t.Errorf("methods chunks = %d, want quota 1", len(methods))
	}

	// Consecutive results chunks share the overlap sentences.
	first := SplitSentences(results[0].Text)
	second := SplitSentences(results[1].Text)
	if first[len(first)-2] != second[0] || first[len(first)-1] != second[1] {
		t.Error("consecutive results chunks should overlap by two sentences")
	}

	for _, c := range chunks {
		if c.SourceItemID != "pmid:1" {
			t.Errorf("chunk %s has source %q", c.ID, c.SourceItemID)
		}
	}
	if results[0].ID != types.ChunkID("pmid:1", types.SectionResults, 0) {
		t.Errorf("chunk id = %q", results[0].ID)
	}
}

func TestAbstractChunks(t *testing.T) {
	abstract := "First point made. Second point follows. Third point concludes."
	chunks := AbstractChunks("pmid:9", abstract)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks %v, want 2 two-sentence windows", len(chunks), chunks)
	}
	if !strings.Contains(chunks[0].Text, "First point") || !strings.Contains(chunks[0].Text, "Second point") {
		t.Errorf("chunk 0 = %q, want first window", chunks[0].Text)
	}
	// One-sentence overlap: the second window starts at sentence two.
	if !strings.Contains(chunks[1].Text, "Second point") || !strings.Contains(chunks[1].Text, "Third point") {
		t.Errorf("chunk 1 = %q, want overlapping second window", chunks[1].Text)
	}
}

func TestAbstractChunks_Empty(t *testing.T) {
	if got := AbstractChunks("pmid:9", "  "); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
