// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Category classifies an evidence item by publication kind.
type Category string

const (
	CategoryGuideline Category = "guideline"
	CategoryReview    Category = "review"
	CategoryTrial     Category = "trial"
	CategoryArticle   Category = "article"
	CategoryDrugInfo  Category = "drug_info"
)

// Categories lists all categories in tier order.
var Categories = []Category{
	CategoryGuideline,
	CategoryReview,
	CategoryTrial,
	CategoryArticle,
	CategoryDrugInfo,
}

// Tier returns the ordinal evidence-quality class for the category:
// 1=guideline, 2=systematic review, 3=trial, 4=article, 5=drug label,
// 6=other/unclassified.
func (c Category) Tier() int {
	switch c {
	case CategoryGuideline:
		return 1
	case CategoryReview:
		return 2
	case CategoryTrial:
		return 3
	case CategoryArticle:
		return 4
	case CategoryDrugInfo:
		return 5
	default:
		return 6
	}
}

// URLParts holds the identifiers sufficient to build a citation URL.
// A free-text search URL is never stored; citations are rebuilt from
// stable identifiers only.
type URLParts struct {
	// PrimaryID is the source's accession identifier (PMID digits, NCT
	// number, SPL set ID).
	PrimaryID string `json:"primary_id" yaml:"primary_id"`

	// SecondaryID is a cross-reference identifier when known (e.g. PMCID).
	SecondaryID string `json:"secondary_id,omitempty" yaml:"secondary_id,omitempty"`

	// DOI is the bare DOI without resolver prefix, when known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// EvidenceItem is the canonical shape every source adapter produces.
// Adapters create it; every later stage treats it as read-only.
type EvidenceItem struct {
	// ID is the stable, source-prefixed identifier used for deduplication
	// and citation (e.g. "pmid:36373820", "NCT04280705", "spl:abc-123").
	ID string `json:"id" yaml:"id"`

	// SourceName identifies the adapter that produced the item.
	SourceName string `json:"source_name" yaml:"source_name"`

	// Category classifies the item.
	Category Category `json:"category" yaml:"category"`

	// Title is the item title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Summary is the abstract or label-section summary text.
	Summary string `json:"summary" yaml:"summary"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// URLParts carries the identifiers used to rebuild a citation URL.
	URLParts URLParts `json:"url_parts" yaml:"url_parts"`

	// IsAnchor marks a pre-identified gold-standard item for the detected
	// clinical scenario. Anchors bypass relevance filtering and are always
	// retained by curation.
	IsAnchor bool `json:"is_anchor,omitempty" yaml:"is_anchor,omitempty"`
}

// CitationURL builds a stable citation URL from the item's identifier parts.
// Returns an empty string when no identifier is available.
func (e EvidenceItem) CitationURL() string {
	switch e.SourceName {
	case "pubmed", "europepmc":
		if e.URLParts.PrimaryID != "" {
			return "https://pubmed.ncbi.nlm.nih.gov/" + e.URLParts.PrimaryID + "/"
		}
	case "clinicaltrials":
		if e.URLParts.PrimaryID != "" {
			return "https://clinicaltrials.gov/study/" + e.URLParts.PrimaryID
		}
	case "dailymed":
		if e.URLParts.PrimaryID != "" {
			return "https://dailymed.nlm.nih.gov/dailymed/drugInfo.cfm?setid=" + e.URLParts.PrimaryID
		}
	case "websearch":
		// Web results have no accession scheme; the page URL is the
		// identifier.
		return e.URLParts.PrimaryID
	}
	if e.URLParts.DOI != "" {
		return "https://doi.org/" + e.URLParts.DOI
	}
	if e.URLParts.SecondaryID != "" {
		return "https://www.ncbi.nlm.nih.gov/pmc/articles/" + e.URLParts.SecondaryID + "/"
	}
	return ""
}

// ScoredItem wraps an EvidenceItem with the scores attached by the scoring
// and reranking stages. Stages build new ScoredItems rather than mutating,
// so each stage stays pure.
type ScoredItem struct {
	Item EvidenceItem `json:"item" yaml:"item"`

	// RelevanceScore is the 0-100 tag-relevance score.
	RelevanceScore int `json:"relevance_score" yaml:"relevance_score"`

	// SemanticScore is the 0-1 cross-encoder score. Valid only when
	// HasSemantic is true; the reranker may be unavailable.
	SemanticScore float64 `json:"semantic_score,omitempty" yaml:"semantic_score,omitempty"`
	HasSemantic   bool    `json:"has_semantic,omitempty" yaml:"has_semantic,omitempty"`

	// Tier is the ordinal quality class, derived from the item category.
	Tier int `json:"tier" yaml:"tier"`

	// QualityScore is a 0-100 recency/category quality heuristic used as
	// the final sort tiebreaker.
	QualityScore int `json:"quality_score" yaml:"quality_score"`
}

// CuratedEvidenceSet is the ordered, bounded reference list produced by
// curation. Invariants: no duplicate item IDs, every anchor from the input
// pool present, length never above the configured maximum.
type CuratedEvidenceSet struct {
	Items []ScoredItem `json:"items" yaml:"items"`
}

// Len returns the number of curated items.
func (s CuratedEvidenceSet) Len() int { return len(s.Items) }

// IDs returns the curated item IDs in rank order.
func (s CuratedEvidenceSet) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.Item.ID
	}
	return ids
}

// ContainsID reports whether an item with the given ID is in the set.
func (s CuratedEvidenceSet) ContainsID(id string) bool {
	for _, it := range s.Items {
		if it.Item.ID == id {
			return true
		}
	}
	return false
}

// ByCategory partitions the curated items by category, preserving rank
// order within each category.
func (s CuratedEvidenceSet) ByCategory() map[Category][]ScoredItem {
	out := make(map[Category][]ScoredItem)
	for _, it := range s.Items {
		out[it.Item.Category] = append(out[it.Item.Category], it)
	}
	return out
}

// CategoriesPresent returns the number of distinct categories in the set.
func (s CuratedEvidenceSet) CategoriesPresent() int {
	seen := make(map[Category]bool)
	for _, it := range s.Items {
		seen[it.Item.Category] = true
	}
	return len(seen)
}

// SufficiencyLevel grades the adequacy of a curated evidence set.
type SufficiencyLevel string

const (
	SufficiencyInsufficient SufficiencyLevel = "insufficient"
	SufficiencyLimited      SufficiencyLevel = "limited"
	SufficiencyAdequate     SufficiencyLevel = "adequate"
	SufficiencyStrong       SufficiencyLevel = "strong"
)

// SufficiencyScore is the derived adequacy metric for a curated set. It is
// computed per run and never persisted with the package it describes.
type SufficiencyScore struct {
	// Score is the 0-100 adequacy score.
	Score int `json:"score" yaml:"score"`

	// Level buckets the score for caller messaging.
	Level SufficiencyLevel `json:"level" yaml:"level"`

	// AnchorCount is the number of anchor items in the curated set.
	AnchorCount int `json:"anchor_count" yaml:"anchor_count"`

	// ShouldTriggerFallback is true when fallback retrieval must run:
	// either the score fell below the configured cut or the post-filter
	// item count fell below the hard floor. The two checks are independent
	// because aggressive filtering can empty a category while raw
	// retrieval volume still looks fine.
	ShouldTriggerFallback bool `json:"should_trigger_fallback" yaml:"should_trigger_fallback"`
}

// LevelForScore buckets a 0-100 sufficiency score.
func LevelForScore(score int) SufficiencyLevel {
	switch {
	case score >= 80:
		return SufficiencyStrong
	case score >= 50:
		return SufficiencyAdequate
	case score >= 25:
		return SufficiencyLimited
	default:
		return SufficiencyInsufficient
	}
}

// String implements fmt.Stringer for log lines and table output.
func (s SufficiencyScore) String() string {
	return fmt.Sprintf("%d/100 (%s, %d anchors)", s.Score, s.Level, s.AnchorCount)
}
