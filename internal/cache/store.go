// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists evidence packages in a local SQLite database
// with a full-text index over chunk text, so a clinician rerunning a
// question does not pay the retrieval pipeline again.
// Implements: prd016-cache (R1-R4);
//
//	docs/ARCHITECTURE § Cache.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const dbFile = "evidence.db"

// Store manages the evidence cache SQLite database.
type Store struct {
	db         *sql.DB
	cacheDir   string
	maxResults int
}

// NewStore opens or creates the cache database at cfg.CacheDir/evidence.db,
// creating the schema when missing.
func NewStore(cfg types.CacheConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(cfg.CacheDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, cacheDir: cfg.CacheDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS packages (
			id TEXT PRIMARY KEY,
			raw_query TEXT NOT NULL,
			profile TEXT NOT NULL,
			sufficiency_score INTEGER,
			sufficiency_level TEXT,
			fallback_used INTEGER,
			built_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT NOT NULL,
			package_id TEXT NOT NULL REFERENCES packages(id),
			source_name TEXT,
			category TEXT,
			title TEXT,
			summary TEXT,
			year INTEGER,
			relevance_score INTEGER,
			tier INTEGER,
			is_anchor INTEGER,
			citation_url TEXT,
			PRIMARY KEY (package_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_package ON items(package_id)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			package_id TEXT NOT NULL REFERENCES packages(id),
			source_item_id TEXT NOT NULL,
			section TEXT,
			content TEXT NOT NULL,
			score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_package ON chunks(package_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE chunks_fts USING fts5(content, content=chunks, content_rowid=rowid)`,
			`CREATE TRIGGER chunks_ai AFTER INSERT ON chunks BEGIN
				INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER chunks_ad AFTER DELETE ON chunks BEGIN
				INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER chunks_au AFTER UPDATE ON chunks BEGIN
				INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// PackageID derives the cache key for a profile: same question, same slot.
func PackageID(profile types.QueryProfile) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(profile.QueryText()))))
	return hex.EncodeToString(sum[:6])
}

// Save stores an evidence package, replacing any previous package for
// the same query.
func (s *Store) Save(ctx context.Context, pkg types.EvidencePackage) (string, error) {
	id := PackageID(pkg.Profile)

	profileJSON, err := json.Marshal(pkg.Profile)
	if err != nil {
		return "", fmt.Errorf("encoding profile: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace semantics: old items and chunks go first.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE package_id = ?`, id); err != nil {
		return "", fmt.Errorf("deleting old chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE package_id = ?`, id); err != nil {
		return "", fmt.Errorf("deleting old items: %w", err)
	}

	fallback := 0
	if pkg.FallbackUsed {
		fallback = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO packages (id, raw_query, profile, sufficiency_score, sufficiency_level, fallback_used, built_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			raw_query=excluded.raw_query, profile=excluded.profile,
			sufficiency_score=excluded.sufficiency_score, sufficiency_level=excluded.sufficiency_level,
			fallback_used=excluded.fallback_used, built_at=excluded.built_at`,
		id, pkg.Profile.RawQuery, string(profileJSON),
		pkg.Sufficiency.Score, string(pkg.Sufficiency.Level), fallback,
		pkg.BuiltAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("upserting package: %w", err)
	}

	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (id, package_id, source_name, category, title, summary, year, relevance_score, tier, is_anchor, citation_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing item insert: %w", err)
	}
	defer itemStmt.Close()

	for _, it := range pkg.Curated.Items {
		anchor := 0
		if it.Item.IsAnchor {
			anchor = 1
		}
		_, err := itemStmt.ExecContext(ctx,
			it.Item.ID, id, it.Item.SourceName, string(it.Item.Category),
			it.Item.Title, it.Item.Summary, it.Item.Year,
			it.RelevanceScore, it.Tier, anchor, it.Item.CitationURL(),
		)
		if err != nil {
			return "", fmt.Errorf("inserting item %s: %w", it.Item.ID, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, package_id, source_item_id, section, content, score)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	for _, c := range pkg.Chunks {
		_, err := chunkStmt.ExecContext(ctx, c.ID, id, c.SourceItemID, string(c.Section), c.Text, c.Score)
		if err != nil {
			return "", fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return id, nil
}

// StoredPackage is the summary row for a cached package.
type StoredPackage struct {
	ID               string
	RawQuery         string
	SufficiencyScore int
	SufficiencyLevel string
	FallbackUsed     bool
	BuiltAt          time.Time
	Items            int
	Chunks           int
}

// List returns cached package summaries, newest first.
func (s *Store) List(ctx context.Context) ([]StoredPackage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.raw_query, p.sufficiency_score, p.sufficiency_level, p.fallback_used, p.built_at,
			(SELECT count(*) FROM items i WHERE i.package_id = p.id),
			(SELECT count(*) FROM chunks c WHERE c.package_id = p.id)
		 FROM packages p ORDER BY p.built_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying packages: %w", err)
	}
	defer rows.Close()

	var out []StoredPackage
	for rows.Next() {
		var sp StoredPackage
		var fallback int
		var builtAt string
		if err := rows.Scan(&sp.ID, &sp.RawQuery, &sp.SufficiencyScore, &sp.SufficiencyLevel,
			&fallback, &builtAt, &sp.Items, &sp.Chunks); err != nil {
			return nil, fmt.Errorf("scanning package row: %w", err)
		}
		sp.FallbackUsed = fallback != 0
		sp.BuiltAt, _ = time.Parse(time.RFC3339, builtAt)
		out = append(out, sp)
	}
	return out, rows.Err()
}
