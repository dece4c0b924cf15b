// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"sort"
	"strings"
)

// diseaseVocab maps lexical surface forms to canonical disease tags. The
// same tag vocabulary the upstream query-understanding stage emits, so
// item tags and profile tags compare directly.
var diseaseVocab = map[string]string{
	"community-acquired pneumonia": "pneumonia",
	"community acquired pneumonia": "pneumonia",
	"pneumonia":                    "pneumonia",
	"atrial fibrillation":          "atrial-fibrillation",
	"afib":                         "atrial-fibrillation",
	"heart failure":                "heart-failure",
	"hfref":                        "heart-failure",
	"hfpef":                        "heart-failure",
	"myocardial infarction":        "acute-coronary-syndrome",
	"acute coronary syndrome":      "acute-coronary-syndrome",
	"coronary artery disease":      "coronary-artery-disease",
	"type 2 diabetes":              "type-2-diabetes",
	"diabetes mellitus":            "type-2-diabetes",
	"stroke":                       "stroke",
	"ischemic stroke":              "stroke",
	"venous thromboembolism":       "venous-thromboembolism",
	"pulmonary embolism":           "venous-thromboembolism",
	"deep vein thrombosis":         "venous-thromboembolism",
	"copd":                         "copd",
	"chronic obstructive pulmonary disease": "copd",
	"hypertension":            "hypertension",
	"chronic kidney disease":  "chronic-kidney-disease",
	"sepsis":                  "sepsis",
	"urinary tract infection": "urinary-tract-infection",
	"cellulitis":              "skin-soft-tissue-infection",
}

// decisionVocab maps surface forms to canonical decision tags.
var decisionVocab = map[string]string{
	"antibiotic duration":       "antibiotic-duration",
	"duration of antibiotic":    "antibiotic-duration",
	"duration of therapy":       "treatment-duration",
	"treatment duration":        "treatment-duration",
	"anticoagulation":           "anticoagulation",
	"anticoagulant":             "anticoagulation",
	"antiplatelet":              "antiplatelet-therapy",
	"dual antiplatelet":         "dual-antiplatelet-therapy",
	"dapt":                      "dual-antiplatelet-therapy",
	"dose":                      "dosing",
	"dosing":                    "dosing",
	"initiation":                "treatment-initiation",
	"discontinuation":           "treatment-discontinuation",
	"deprescribing":             "treatment-discontinuation",
	"screening":                 "screening",
	"rate control":              "rate-control",
	"rhythm control":            "rhythm-control",
	"glycemic control":          "glycemic-control",
	"guideline-directed":        "gdmt",
	"statin":                    "lipid-management",
	"lipid lowering":            "lipid-management",
	"blood pressure target":     "bp-target",
	"antihypertensive":          "bp-target",
	"stress ulcer prophylaxis":  "prophylaxis",
	"thromboprophylaxis":        "prophylaxis",
	"perioperative management":  "perioperative-management",
	"bridging":                  "perioperative-management",
	"switching":                 "agent-selection",
	"choice of agent":           "agent-selection",
	"first-line":                "agent-selection",
	"de-escalation":             "de-escalation",
	"step-down":                 "de-escalation",
	"oral step down":            "de-escalation",
}

// genericClinicalVocab is the low-signal vocabulary that earns a
// non-zero floor in strict scoring: the item is clearly clinical text
// even though no tag matched.
var genericClinicalVocab = []string{
	"patient", "clinical", "treatment", "therapy", "randomized",
	"outcome", "efficacy", "diagnosis", "mortality", "placebo",
	"cohort", "systematic review", "meta-analysis",
}

// offTopicPairs lists item tags that are known decoys for a given query
// disease tag: lexically plausible, clinically unrelated. An
// antiplatelet-duration paper keeps surfacing under pneumonia
// antibiotic-duration queries because both talk about "duration of
// therapy"; this table is how the scorer learns that lesson once.
var offTopicPairs = map[string][]string{
	"pneumonia": {
		"antiplatelet-therapy",
		"dual-antiplatelet-therapy",
		"anticoagulation",
	},
	"urinary-tract-infection": {
		"antiplatelet-therapy",
		"dual-antiplatelet-therapy",
		"anticoagulation",
	},
	"skin-soft-tissue-infection": {
		"antiplatelet-therapy",
		"anticoagulation",
	},
	"atrial-fibrillation": {
		"antibiotic-duration",
	},
	"type-2-diabetes": {
		"antibiotic-duration",
		"dual-antiplatelet-therapy",
	},
}

// ExtractTags scans item text for vocabulary hits and returns canonical
// disease and decision tags, each sorted and deduplicated. Pure function
// of its input.
func ExtractTags(text string) (disease, decision []string) {
	lower := strings.ToLower(text)
	return matchVocab(lower, diseaseVocab), matchVocab(lower, decisionVocab)
}

func matchVocab(lower string, vocab map[string]string) []string {
	seen := make(map[string]bool)
	for term, tag := range vocab {
		if strings.Contains(lower, term) {
			seen[tag] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// hasGenericClinicalVocab reports whether the text reads as clinical
// prose at all.
func hasGenericClinicalVocab(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range genericClinicalVocab {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// isOffTopic reports whether any of the item's tags is a registered
// decoy for any of the profile's disease tags.
func isOffTopic(profileDiseaseTags, itemTags []string) bool {
	for _, d := range profileDiseaseTags {
		decoys := offTopicPairs[d]
		if len(decoys) == 0 {
			continue
		}
		for _, decoy := range decoys {
			for _, tag := range itemTags {
				if tag == decoy {
					return true
				}
			}
		}
	}
	return false
}
