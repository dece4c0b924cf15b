// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"strings"
	"unicode"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// chunkSpec sets the chunking shape for one section type: how many
// sentences per chunk, how many carry over between consecutive chunks,
// and how many chunks the section may contribute.
type chunkSpec struct {
	sentences int
	overlap   int
	quota     int
}

// Results and discussion carry the clinically decisive content, so they
// get the largest windows and quotas; background sections contribute
// less.
var sectionSpecs = map[types.SectionType]chunkSpec{
	types.SectionResults:      {sentences: 6, overlap: 2, quota: 4},
	types.SectionDiscussion:   {sentences: 6, overlap: 2, quota: 4},
	types.SectionConclusion:   {sentences: 4, overlap: 1, quota: 2},
	types.SectionAbstract:     {sentences: 3, overlap: 1, quota: 2},
	types.SectionMethods:      {sentences: 3, overlap: 1, quota: 1},
	types.SectionIntroduction: {sentences: 3, overlap: 1, quota: 1},
	types.SectionOther:        {sentences: 4, overlap: 1, quota: 2},
}

// ChunkSections cuts labeled sections into overlapping sentence-window
// chunks. Chunk IDs are derived from the item ID, section, and index, so
// every chunk stays traceable to exactly one item.
func ChunkSections(itemID string, sections []RawSection) []types.Chunk {
	var chunks []types.Chunk
	indexBySection := make(map[types.SectionType]int)

	for _, sec := range sections {
		spec, ok := sectionSpecs[sec.Type]
		if !ok {
			spec = sectionSpecs[types.SectionOther]
		}
		sentences := SplitSentences(sec.Text)
		if len(sentences) == 0 {
			continue
		}

		taken := 0
		step := spec.sentences - spec.overlap
		if step < 1 {
			step = 1
		}
		for start := 0; start < len(sentences) && taken < spec.quota; start += step {
			end := start + spec.sentences
			if end > len(sentences) {
				end = len(sentences)
			}
			idx := indexBySection[sec.Type]
			chunks = append(chunks, types.Chunk{
				ID:           types.ChunkID(itemID, sec.Type, idx),
				SourceItemID: itemID,
				Section:      sec.Type,
				Text:         strings.Join(sentences[start:end], " "),
			})
			indexBySection[sec.Type] = idx + 1
			taken++
			if end == len(sentences) {
				break
			}
		}
	}
	return chunks
}

// AbstractChunks is the no-full-text substitute: 2-sentence windows with
// 1-sentence overlap over the abstract, so every curated item still
// contributes at least one citable chunk.
func AbstractChunks(itemID, abstract string) []types.Chunk {
	sentences := SplitSentences(abstract)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []types.Chunk
	for start, idx := 0, 0; start < len(sentences); start, idx = start+1, idx+1 {
		end := start + 2
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, types.Chunk{
			ID:           types.ChunkID(itemID, types.SectionAbstract, idx),
			SourceItemID: itemID,
			Section:      types.SectionAbstract,
			Text:         strings.Join(sentences[start:end], " "),
		})
		if end == len(sentences) {
			break
		}
	}
	return chunks
}

// SplitSentences breaks text at sentence boundaries: a terminator
// followed by whitespace and an upper-case or digit start. Abbreviation
// handling is deliberately minimal; chunk windows tolerate an occasional
// over-split.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 && j < len(runes) {
			continue // terminator not followed by whitespace
		}
		if j < len(runes) && !unicode.IsUpper(runes[j]) && !unicode.IsDigit(runes[j]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:j])); s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
