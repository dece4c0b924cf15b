// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curation

import (
	"github.com/pdiddy/evidence-engine/internal/relevance"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Assess scores how adequate a curated set is for answering the profile
// (R5). The score combines, in descending weight: anchor presence,
// tier-1/2 items matching both primary tags, raw volume against the
// evidence threshold, and category coverage (a guideline plus at least
// one trial or review).
//
// The fallback trigger is an OR of two independent checks (R6): score
// below cfg.FallbackCut, or curated count below cfg.MinItemFloor. The
// count check exists because aggressive filtering can empty a category
// while the score still looks adequate. Both thresholds and the two
// weights are tunable, not constants.
func Assess(set types.CuratedEvidenceSet, profile types.QueryProfile, cfg types.SufficiencyConfig) types.SufficiencyScore {
	anchorWeight := cfg.AnchorWeight
	if anchorWeight <= 0 {
		anchorWeight = 25
	}
	tierMatchWeight := cfg.TierMatchWeight
	if tierMatchWeight <= 0 {
		tierMatchWeight = 15
	}
	threshold := cfg.MinEvidenceThreshold
	if threshold <= 0 {
		threshold = 8
	}
	cut := cfg.FallbackCut
	if cut <= 0 {
		cut = 50
	}
	floor := cfg.MinItemFloor
	if floor <= 0 {
		floor = 5
	}

	var anchorCount, tierMatches int
	var hasGuideline, hasTrialOrReview bool
	for _, s := range set.Items {
		if s.Item.IsAnchor {
			anchorCount++
		}
		switch s.Item.Category {
		case types.CategoryGuideline:
			hasGuideline = true
		case types.CategoryTrial, types.CategoryReview:
			hasTrialOrReview = true
		}
		if s.Tier <= 2 && matchesBothPrimaryTags(s.Item, profile) {
			tierMatches++
		}
	}

	score := 0

	// Anchors dominate: two anchors alone reach the adequate band.
	score += min(anchorCount, 2) * anchorWeight

	score += min(tierMatches, 2) * tierMatchWeight

	// Volume: linear credit up to the threshold, worth 30 points.
	volume := set.Len() * 30 / threshold
	if volume > 30 {
		volume = 30
	}
	score += volume

	if hasGuideline {
		score += 10
	}
	if hasTrialOrReview {
		score += 10
	}

	if score > 100 {
		score = 100
	}

	return types.SufficiencyScore{
		Score:                 score,
		Level:                 types.LevelForScore(score),
		AnchorCount:           anchorCount,
		ShouldTriggerFallback: score < cut || set.Len() < floor,
	}
}

func matchesBothPrimaryTags(item types.EvidenceItem, profile types.QueryProfile) bool {
	if profile.PrimaryDiseaseTag == "" || profile.PrimaryDecisionTag == "" {
		return false
	}
	disease, decision := relevance.ExtractTags(item.Title + " " + item.Summary)
	return containsTag(disease, profile.PrimaryDiseaseTag) && containsTag(decision, profile.PrimaryDecisionTag)
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
