// Package metadata provides the SQLite file registry and persistent BM25
// corpus statistics.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/awase/internal/models"
)

// ErrNotFound is returned when a file record does not exist.
var ErrNotFound = errors.New("file record not found")

// Store is the SQLite-backed metadata store. It owns the files table and
// the term statistics tables used for BM25 weighting, and implements
// sparse.Stats.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		file_key TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		content_type TEXT,
		upload_date TIMESTAMP,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_files_user_id ON files(user_id);

	CREATE TABLE IF NOT EXISTS term_stats (
		term TEXT PRIMARY KEY,
		doc_freq INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS corpus_stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		doc_count INTEGER NOT NULL DEFAULT 0,
		total_length INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO corpus_stats (id, doc_count, total_length) VALUES (1, 0, 0);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertFile inserts or replaces a file record keyed by file_key.
func (s *Store) UpsertFile(ctx context.Context, rec *models.FileRecord) error {
	if rec.UploadDate.IsZero() {
		rec.UploadDate = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (file_key, user_id, file_name, file_size, content_type, upload_date, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_key) DO UPDATE SET
			user_id = excluded.user_id,
			file_name = excluded.file_name,
			file_size = excluded.file_size,
			content_type = excluded.content_type,
			upload_date = excluded.upload_date,
			is_active = excluded.is_active`,
		rec.FileKey, rec.UserID, rec.FileName, rec.FileSize, rec.ContentType, rec.UploadDate, rec.IsActive,
	)
	return err
}

// GetFile returns a file record by key, or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, fileKey string) (*models.FileRecord, error) {
	var rec models.FileRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT file_key, user_id, file_name, file_size, content_type, upload_date, is_active
		 FROM files WHERE file_key = ?`, fileKey,
	).Scan(&rec.FileKey, &rec.UserID, &rec.FileName, &rec.FileSize, &rec.ContentType, &rec.UploadDate, &rec.IsActive)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileKey)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListFiles returns all active file records for a user ordered by upload date.
func (s *Store) ListFiles(ctx context.Context, userID string) ([]*models.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_key, user_id, file_name, file_size, content_type, upload_date, is_active
		 FROM files WHERE user_id = ? AND is_active = 1 ORDER BY upload_date DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.FileRecord
	for rows.Next() {
		var rec models.FileRecord
		if err := rows.Scan(&rec.FileKey, &rec.UserID, &rec.FileName, &rec.FileSize, &rec.ContentType, &rec.UploadDate, &rec.IsActive); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// SetActive flips the is_active flag without removing the row, so the
// record stays visible to reconciliation history.
func (s *Store) SetActive(ctx context.Context, fileKey string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE files SET is_active = ? WHERE file_key = ?`, active, fileKey,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fileKey)
	}
	return nil
}

// DeleteFile removes a file record by key.
func (s *Store) DeleteFile(ctx context.Context, fileKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE file_key = ?`, fileKey)
	return err
}

// CountFiles returns the number of active file records for a user.
func (s *Store) CountFiles(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE user_id = ? AND is_active = 1`, userID,
	).Scan(&count)
	return count, err
}

// AddDocument implements sparse.Stats. Document frequency and corpus
// totals are updated in one transaction so the statistics stay consistent
// under concurrent ingestion. Statistics are additive only: deleting a
// file does not decrement doc_count or doc_freq, so IDF reflects every
// document ever indexed rather than the current corpus.
func (s *Store) AddDocument(ctx context.Context, terms []string, length int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO term_stats (term, doc_freq) VALUES (?, 1)
		 ON CONFLICT(term) DO UPDATE SET doc_freq = doc_freq + 1`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		if _, err := stmt.ExecContext(ctx, term); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE corpus_stats SET doc_count = doc_count + 1, total_length = total_length + ? WHERE id = 1`,
		length,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// DocCount implements sparse.Stats.
func (s *Store) DocCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT doc_count FROM corpus_stats WHERE id = 1`).Scan(&count)
	return count, err
}

// AvgDocLength implements sparse.Stats.
func (s *Store) AvgDocLength(ctx context.Context) (float64, error) {
	var docs, totalLen int64
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_count, total_length FROM corpus_stats WHERE id = 1`,
	).Scan(&docs, &totalLen)
	if err != nil {
		return 0, err
	}
	if docs == 0 {
		return 0, nil
	}
	return float64(totalLen) / float64(docs), nil
}

// DocFreq implements sparse.Stats. Terms absent from the table report
// frequency zero.
func (s *Store) DocFreq(ctx context.Context, terms []string) (map[string]int64, error) {
	out := make(map[string]int64, len(terms))
	if len(terms) == 0 {
		return out, nil
	}
	for _, term := range terms {
		out[term] = 0
	}

	placeholders := strings.Repeat("?,", len(terms))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(terms))
	for i, term := range terms {
		args[i] = term
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT term, doc_freq FROM term_stats WHERE term IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var term string
		var freq int64
		if err := rows.Scan(&term, &freq); err != nil {
			return nil, err
		}
		out[term] = freq
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
