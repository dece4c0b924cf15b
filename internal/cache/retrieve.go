// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ChunkHit is one full-text search result.
type ChunkHit struct {
	PackageID    string  `json:"package_id" yaml:"package_id"`
	ChunkID      string  `json:"chunk_id" yaml:"chunk_id"`
	SourceItemID string  `json:"source_item_id" yaml:"source_item_id"`
	Section      string  `json:"section" yaml:"section"`
	Snippet      string  `json:"snippet" yaml:"snippet"`
	Rank         float64 `json:"rank" yaml:"rank"`
}

// Lookup returns the cached package for a profile, or found=false when
// the question has not been cached.
func (s *Store) Lookup(ctx context.Context, profile types.QueryProfile) (types.EvidencePackage, bool, error) {
	return s.Get(ctx, PackageID(profile))
}

// Get reconstructs a cached package by ID.
func (s *Store) Get(ctx context.Context, id string) (types.EvidencePackage, bool, error) {
	var pkg types.EvidencePackage

	var profileJSON, level, builtAt string
	var fallback int
	err := s.db.QueryRowContext(ctx,
		`SELECT profile, sufficiency_score, sufficiency_level, fallback_used, built_at
		 FROM packages WHERE id = ?`, id,
	).Scan(&profileJSON, &pkg.Sufficiency.Score, &level, &fallback, &builtAt)
	if err == sql.ErrNoRows {
		return pkg, false, nil
	}
	if err != nil {
		return pkg, false, fmt.Errorf("querying package %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(profileJSON), &pkg.Profile); err != nil {
		return pkg, false, fmt.Errorf("decoding profile for %s: %w", id, err)
	}
	pkg.Sufficiency.Level = types.SufficiencyLevel(level)
	pkg.FallbackUsed = fallback != 0
	pkg.BuiltAt, _ = time.Parse(time.RFC3339, builtAt)

	items, err := s.packageItems(ctx, id)
	if err != nil {
		return pkg, false, err
	}
	pkg.Curated.Items = items

	chunks, err := s.packageChunks(ctx, id)
	if err != nil {
		return pkg, false, err
	}
	pkg.Chunks = chunks

	whitelist := make(map[string]struct{})
	for _, it := range items {
		whitelist[it.Item.ID] = struct{}{}
	}
	for _, c := range chunks {
		whitelist[c.SourceItemID] = struct{}{}
	}
	pkg.CitationWhitelist = sortedKeys(whitelist)

	anchors := 0
	for _, it := range items {
		if it.Item.IsAnchor {
			anchors++
		}
	}
	pkg.Sufficiency.AnchorCount = anchors

	return pkg, true, nil
}

func (s *Store) packageItems(ctx context.Context, id string) ([]types.ScoredItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_name, category, title, summary, year, relevance_score, tier, is_anchor
		 FROM items WHERE package_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("querying items for %s: %w", id, err)
	}
	defer rows.Close()

	var out []types.ScoredItem
	for rows.Next() {
		var it types.ScoredItem
		var category string
		var anchor int
		if err := rows.Scan(&it.Item.ID, &it.Item.SourceName, &category,
			&it.Item.Title, &it.Item.Summary, &it.Item.Year,
			&it.RelevanceScore, &it.Tier, &anchor); err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		it.Item.Category = types.Category(category)
		it.Item.IsAnchor = anchor != 0
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) packageChunks(ctx context.Context, id string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_item_id, section, content, score
		 FROM chunks WHERE package_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("querying chunks for %s: %w", id, err)
	}
	defer rows.Close()

	var out []types.Chunk
	for rows.Next() {
		var c types.Chunk
		var section string
		if err := rows.Scan(&c.ID, &c.SourceItemID, &section, &c.Text, &c.Score); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		c.Section = types.SectionType(section)
		c.HasScore = c.Score > 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// Search runs a full-text query over every cached chunk. A limit of
// zero or less uses the store's configured maximum.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]ChunkHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.package_id, c.id, c.source_item_id, c.section,
			snippet(chunks_fts, 0, '[', ']', '...', 24),
			rank
		 FROM chunks_fts
		 JOIN chunks c ON c.rowid = chunks_fts.rowid
		 WHERE chunks_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		var h ChunkHit
		if err := rows.Scan(&h.PackageID, &h.ChunkID, &h.SourceItemID,
			&h.Section, &h.Snippet, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery quotes each term so user punctuation cannot break FTS5
// query syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	return strings.Join(quoted, " ")
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
