// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"sort"
	"time"
)

// SectionType labels the paper section a chunk was cut from.
type SectionType string

const (
	SectionAbstract     SectionType = "abstract"
	SectionIntroduction SectionType = "introduction"
	SectionMethods      SectionType = "methods"
	SectionResults      SectionType = "results"
	SectionDiscussion   SectionType = "discussion"
	SectionConclusion   SectionType = "conclusion"
	SectionOther        SectionType = "other"
)

// Chunk is a citable slice of an evidence item's text. Every chunk traces
// back to exactly one EvidenceItem through SourceItemID.
type Chunk struct {
	// ID is derived from the source item ID, section, and chunk index,
	// stable across re-chunking of unchanged text.
	ID string `json:"id" yaml:"id"`

	// SourceItemID is the EvidenceItem.ID the chunk was cut from.
	SourceItemID string `json:"source_item_id" yaml:"source_item_id"`

	// Section labels the source section.
	Section SectionType `json:"section" yaml:"section"`

	// Text is the chunk content.
	Text string `json:"text" yaml:"text"`

	// Score is the 0-1 cross-encoder score. Valid only when HasScore is
	// true; chunk reranking may be degraded.
	Score    float64 `json:"score,omitempty" yaml:"score,omitempty"`
	HasScore bool    `json:"has_score,omitempty" yaml:"has_score,omitempty"`
}

// ChunkID builds the canonical chunk identifier.
func ChunkID(itemID string, section SectionType, index int) string {
	return fmt.Sprintf("%s:%s:%d", itemID, section, index)
}

// EvidencePackage is the pipeline's final output: the curated reference
// set, the selected chunks, and the closed set of identifiers downstream
// generation is permitted to cite. Built once per query, then immutable.
type EvidencePackage struct {
	// Profile is the query profile the package was built for.
	Profile QueryProfile `json:"profile" yaml:"profile"`

	// Curated is the bounded, ordered reference set.
	Curated CuratedEvidenceSet `json:"curated" yaml:"curated"`

	// Chunks are the selected full-text chunks, highest score first.
	Chunks []Chunk `json:"chunks,omitempty" yaml:"chunks,omitempty"`

	// CitationWhitelist is the sorted set of every identifier that appears
	// in the curated list or as a chunk source. Downstream consumers must
	// refuse to cite anything outside it.
	CitationWhitelist []string `json:"citation_whitelist" yaml:"citation_whitelist"`

	// Sufficiency is the adequacy assessment of the final curated set.
	Sufficiency SufficiencyScore `json:"sufficiency" yaml:"sufficiency"`

	// SourceCounts records how many items each source contributed before
	// deduplication.
	SourceCounts map[string]int `json:"source_counts,omitempty" yaml:"source_counts,omitempty"`

	// FallbackUsed reports whether fallback retrieval ran.
	FallbackUsed bool `json:"fallback_used,omitempty" yaml:"fallback_used,omitempty"`

	// BuiltAt is the assembly timestamp.
	BuiltAt time.Time `json:"built_at" yaml:"built_at"`
}

// Whitelisted reports whether id may be cited from this package.
func (p EvidencePackage) Whitelisted(id string) bool {
	i := sort.SearchStrings(p.CitationWhitelist, id)
	return i < len(p.CitationWhitelist) && p.CitationWhitelist[i] == id
}
