// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance scores evidence items against a query profile's
// clinical tags and gates what reaches the semantic reranker.
// Implements: prd011-relevance (R1-R3);
//
//	docs/ARCHITECTURE § Relevance.
package relevance

import (
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Scoring mode. Strict mode is used when the upstream query-understanding
// stage extracted both primary tags; the generic additive mode otherwise.
type Mode int

const (
	ModeGeneric Mode = iota
	ModeStrict
)

// ModeFor picks the scoring mode for a profile.
func ModeFor(profile types.QueryProfile) Mode {
	if profile.HasStructuredTags() {
		return ModeStrict
	}
	return ModeGeneric
}

// Score computes the generic 0-100 tag-relevance score (R2.1). Pure and
// deterministic: same item and profile always yield the same score.
//
// Base 50; +30 when the item's disease tags intersect the profile's,
// -20 when the item has disease tags but none intersect (a competing
// condition); +20 for a decision-tag intersection; flat -40 for a
// registered off-topic pair. Anchors are forced to 100.
func Score(item types.EvidenceItem, profile types.QueryProfile) int {
	if item.IsAnchor {
		return 100
	}

	itemDisease, itemDecision := ExtractTags(item.Title + " " + item.Summary)

	score := 50
	switch {
	case intersects(itemDisease, profile.DiseaseTags):
		score += 30
	case len(itemDisease) > 0:
		score -= 20
	}
	if intersects(itemDecision, profile.DecisionTags) {
		score += 20
	}
	if isOffTopic(profile.DiseaseTags, append(itemDisease, itemDecision...)) {
		score -= 40
	}
	return clamp(score)
}

// ScoreStrict computes the strict tag-match variant (R2.2), used when
// structured tags were extracted. Scores purely on tag matches:
//
//	primary disease + primary decision both match  -> 100
//	primary disease + any decision match           -> 85
//	primary disease only                           -> 70
//	any disease + any decision match               -> 55
//	any disease match only                         -> 40
//	any decision match only                        -> 25
//	no overlap, generic clinical vocabulary        -> 5
//	no overlap, no clinical vocabulary             -> 0
//
// The same off-topic penalty applies before clamping, and anchors are
// forced to 100.
func ScoreStrict(item types.EvidenceItem, profile types.QueryProfile) int {
	if item.IsAnchor {
		return 100
	}

	text := item.Title + " " + item.Summary
	itemDisease, itemDecision := ExtractTags(text)

	primaryDisease := contains(itemDisease, profile.PrimaryDiseaseTag)
	primaryDecision := contains(itemDecision, profile.PrimaryDecisionTag)
	anyDisease := intersects(itemDisease, profile.DiseaseTags)
	anyDecision := intersects(itemDecision, profile.DecisionTags)

	var score int
	switch {
	case primaryDisease && primaryDecision:
		score = 100
	case primaryDisease && anyDecision:
		score = 85
	case primaryDisease:
		score = 70
	case anyDisease && anyDecision:
		score = 55
	case anyDisease:
		score = 40
	case anyDecision:
		score = 25
	case hasGenericClinicalVocab(text):
		score = 5
	default:
		score = 0
	}

	if isOffTopic(profile.DiseaseTags, append(itemDisease, itemDecision...)) {
		score -= 40
	}
	return clamp(score)
}

// ScoreByMode dispatches to the variant for the given mode.
func ScoreByMode(item types.EvidenceItem, profile types.QueryProfile, mode Mode) int {
	if mode == ModeStrict {
		return ScoreStrict(item, profile)
	}
	return Score(item, profile)
}

// QualityScore is the 0-100 recency/category heuristic used as the final
// curation tiebreaker. Newer items and higher evidence tiers score
// better; a year of zero (unknown) earns no recency credit.
func QualityScore(item types.EvidenceItem, currentYear int) int {
	score := 40
	if item.Year > 0 {
		switch age := currentYear - item.Year; {
		case age <= 2:
			score += 35
		case age <= 5:
			score += 25
		case age <= 10:
			score += 10
		}
	}
	switch item.Category {
	case types.CategoryGuideline:
		score += 25
	case types.CategoryReview:
		score += 15
	case types.CategoryTrial:
		score += 10
	}
	return clamp(score)
}

// ScoreAll builds ScoredItems for a pool: relevance by the given mode,
// tier from the category, quality from recency (R3.1). Input order is
// preserved; no sorting happens here.
func ScoreAll(items []types.EvidenceItem, profile types.QueryProfile, mode Mode, currentYear int) []types.ScoredItem {
	scored := make([]types.ScoredItem, len(items))
	for i, it := range items {
		scored[i] = types.ScoredItem{
			Item:           it,
			RelevanceScore: ScoreByMode(it, profile, mode),
			Tier:           it.Category.Tier(),
			QualityScore:   QualityScore(it, currentYear),
		}
	}
	return scored
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func contains(tags []string, tag string) bool {
	if tag == "" {
		return false
	}
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
