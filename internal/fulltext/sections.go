// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// RawSection is a labeled span of article text before chunking.
type RawSection struct {
	Type types.SectionType
	Text string
}

// sectionPatterns maps heading substrings to section types, checked in
// order so "results and discussion" lands on results.
var sectionPatterns = []struct {
	substr string
	typ    types.SectionType
}{
	{"abstract", types.SectionAbstract},
	{"result", types.SectionResults},
	{"finding", types.SectionResults},
	{"discussion", types.SectionDiscussion},
	{"conclusion", types.SectionConclusion},
	{"summary", types.SectionConclusion},
	{"method", types.SectionMethods},
	{"material", types.SectionMethods},
	{"design", types.SectionMethods},
	{"statistical", types.SectionMethods},
	{"introduction", types.SectionIntroduction},
	{"background", types.SectionIntroduction},
}

// SectionTypeForHeading classifies a section heading. Headings matching
// no pattern land on "other".
func SectionTypeForHeading(heading string) types.SectionType {
	lower := strings.ToLower(heading)
	for _, p := range sectionPatterns {
		if strings.Contains(lower, p.substr) {
			return p.typ
		}
	}
	return types.SectionOther
}

// SplitSections labels plain article text by scanning for heading-like
// lines: short lines, no terminal period, matching a known section
// pattern. Text before the first recognized heading and under unknown
// headings becomes "other". Empty input yields no sections.
func SplitSections(text string) []RawSection {
	lines := strings.Split(text, "\n")

	var sections []RawSection
	current := types.SectionOther
	var body []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(body, "\n"))
		if joined != "" {
			sections = append(sections, RawSection{Type: current, Text: joined})
		}
		body = body[:0]
	}

	for _, line := range lines {
		if isHeadingLine(line) {
			flush()
			current = SectionTypeForHeading(line)
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}

// isHeadingLine applies a cheap structural test before the pattern
// match: headings are short and do not end a sentence.
func isHeadingLine(line string) bool {
	trimmed := strings.TrimSpace(strings.TrimLeft(line, "# "))
	if trimmed == "" || len(trimmed) > 60 {
		return false
	}
	if strings.HasSuffix(trimmed, ".") {
		return false
	}
	return SectionTypeForHeading(trimmed) != types.SectionOther
}
