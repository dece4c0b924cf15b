// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine pipeline.
// Implements: prd010-retrieval (QueryProfile, EvidenceItem);
//
//	prd013-curation (ScoredItem, CuratedEvidenceSet, SufficiencyScore);
//	prd014-chunking (Chunk);
//	prd015-packaging (EvidencePackage).
//
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

// QueryProfile is the structured clinical query consumed by the pipeline.
// It is produced by the upstream query-understanding stage; the pipeline
// validates its shape only, never its extraction logic.
type QueryProfile struct {
	// RawQuery is the clinician's question as typed.
	RawQuery string `json:"raw_query" yaml:"raw_query"`

	// ExpandedQuery is the upstream-expanded form used for retrieval and
	// reranking. Falls back to RawQuery when empty.
	ExpandedQuery string `json:"expanded_query,omitempty" yaml:"expanded_query,omitempty"`

	// DiseaseTags are normalized condition labels (e.g. "community-acquired-pneumonia").
	DiseaseTags []string `json:"disease_tags,omitempty" yaml:"disease_tags,omitempty"`

	// DecisionTags are normalized clinical-decision labels (e.g. "antibiotic-duration").
	DecisionTags []string `json:"decision_tags,omitempty" yaml:"decision_tags,omitempty"`

	// PrimaryDiseaseTag is the single most specific disease tag, if any.
	PrimaryDiseaseTag string `json:"primary_disease_tag,omitempty" yaml:"primary_disease_tag,omitempty"`

	// PrimaryDecisionTag is the single most specific decision tag, if any.
	PrimaryDecisionTag string `json:"primary_decision_tag,omitempty" yaml:"primary_decision_tag,omitempty"`

	// AnchorScenario names a recognized clinical scenario with known
	// gold-standard references. Empty when no scenario was detected.
	AnchorScenario string `json:"anchor_scenario,omitempty" yaml:"anchor_scenario,omitempty"`
}

// QueryText returns the text to send to retrieval sources and the reranker:
// the expanded query when present, otherwise the raw query.
func (p QueryProfile) QueryText() string {
	if p.ExpandedQuery != "" {
		return p.ExpandedQuery
	}
	return p.RawQuery
}

// HasStructuredTags reports whether upstream tag extraction succeeded.
// Curation scores with the strict tag-overlap variant when it did.
func (p QueryProfile) HasStructuredTags() bool {
	return p.PrimaryDiseaseTag != "" && p.PrimaryDecisionTag != ""
}

// HasDiseaseTag reports whether tag is one of the profile's disease tags.
func (p QueryProfile) HasDiseaseTag(tag string) bool {
	for _, t := range p.DiseaseTags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasDecisionTag reports whether tag is one of the profile's decision tags.
func (p QueryProfile) HasDecisionTag(tag string) bool {
	for _, t := range p.DecisionTags {
		if t == tag {
			return true
		}
	}
	return false
}
