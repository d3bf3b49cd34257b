// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists the publish history: which manifests were
// released and which content hashes they carried. The filter consults it
// for cross-run deduplication; `history sync` rebuilds it from the
// registry.
// Implements: prd004-history (R1-R4);
//
//	docs/ARCHITECTURE § Publish History.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store manages the publish-history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, applying pending
// schema migrations.
func Open(path string) (*Store, error) {
	slog.Debug("Opening publish history", "path", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring migrations: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	slog.Debug("History migrations applied", "path", path)

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HasHash reports whether hash was published by any recorded manifest.
func (s *Store) HasHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM published_hashes WHERE content_hash = ?`, hash,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying hash: %w", err)
	}
	return true, nil
}

// HashCount returns the number of recorded published hashes.
func (s *Store) HashCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM published_hashes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting hashes: %w", err)
	}
	return n, nil
}

// RecordManifest records a confirmed manifest and its hashes. The manifest
// must carry its registry version. Hashes already recorded by an earlier
// manifest keep their original attribution.
func (s *Store) RecordManifest(ctx context.Context, m types.PublishManifest) error {
	if m.Version == "" {
		return fmt.Errorf("manifest for run %s has no version", m.RunID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertManifest(ctx, tx, m); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing manifest: %w", err)
	}
	slog.Info("Recorded published manifest", "version", m.Version, "records", len(m.Records))
	return nil
}

// Replace wipes the history and re-records the given manifests, used by
// `history sync` to rebuild from the registry's published state.
func (s *Store) Replace(ctx context.Context, manifests []types.PublishManifest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM published_hashes`); err != nil {
		return fmt.Errorf("clearing hashes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM manifests`); err != nil {
		return fmt.Errorf("clearing manifests: %w", err)
	}

	for _, m := range manifests {
		if m.Version == "" {
			return fmt.Errorf("manifest for run %s has no version", m.RunID)
		}
		if err := insertManifest(ctx, tx, m); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sync: %w", err)
	}
	slog.Info("Rebuilt publish history", "manifests", len(manifests))
	return nil
}

func insertManifest(ctx context.Context, tx *sql.Tx, m types.PublishManifest) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO manifests (version, run_id, dataset, created_at, tool_version, total_records)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(version) DO UPDATE SET
		   run_id = excluded.run_id,
		   dataset = excluded.dataset,
		   created_at = excluded.created_at,
		   tool_version = excluded.tool_version,
		   total_records = excluded.total_records`,
		m.Version, m.RunID, m.Dataset, m.CreatedAt.UTC().Format(time.RFC3339), m.ToolVersion, m.TotalRecords,
	)
	if err != nil {
		return fmt.Errorf("recording manifest %s: %w", m.Version, err)
	}

	for _, rec := range m.Records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO published_hashes (content_hash, version, language, repo_name, file_path, size_bytes, num_tokens)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(content_hash) DO NOTHING`,
			rec.ContentHash, m.Version, rec.Language, rec.RepoName, rec.FilePath, rec.SizeBytes, rec.NumTokens,
		)
		if err != nil {
			return fmt.Errorf("recording hash %s: %w", rec.ContentHash, err)
		}
	}
	return nil
}

// ManifestInfo is one row of the recorded manifest list.
type ManifestInfo struct {
	Version      string    `json:"version"`
	RunID        string    `json:"run_id"`
	Dataset      string    `json:"dataset"`
	CreatedAt    time.Time `json:"created_at"`
	ToolVersion  string    `json:"tool_version"`
	TotalRecords int       `json:"total_records"`
}

// ListManifests returns the recorded manifests, newest first.
func (s *Store) ListManifests(ctx context.Context) ([]ManifestInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, run_id, dataset, created_at, tool_version, total_records
		 FROM manifests ORDER BY created_at DESC, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying manifests: %w", err)
	}
	defer rows.Close()

	var infos []ManifestInfo
	for rows.Next() {
		var info ManifestInfo
		var createdAt string
		if err := rows.Scan(&info.Version, &info.RunID, &info.Dataset, &createdAt, &info.ToolVersion, &info.TotalRecords); err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		info.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing manifest timestamp %q: %w", createdAt, err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest rows: %w", err)
	}
	return infos, nil
}
