// Package store persists run history, the correction memory cache, and batch
// checkpoints in a local sqlite database. Every operation is best-effort from
// the pipeline's point of view; a store failure never fails a document.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/greg-randall/ocr-translation/internal"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clean_requests (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		model TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS clean_results (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		service_name TEXT NOT NULL,
		cleaned_text TEXT NOT NULL,
		latency_ms INTEGER,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES clean_requests(id)
	);

	CREATE TABLE IF NOT EXISTS correction_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		model TEXT NOT NULL,
		cleaned_text TEXT NOT NULL,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, model)
	);

	-- batch_checkpoints tracks progress of directory runs for resume support
	CREATE TABLE IF NOT EXISTS batch_checkpoints (
		id TEXT PRIMARY KEY,
		input_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		pattern TEXT NOT NULL,
		model TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- batch_checkpoint_files stores per-file completed results
	CREATE TABLE IF NOT EXISTS batch_checkpoint_files (
		checkpoint_id TEXT NOT NULL,
		input_path TEXT NOT NULL,
		output_path TEXT NOT NULL,
		cleaned_text TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (checkpoint_id, input_path),
		FOREIGN KEY (checkpoint_id) REFERENCES batch_checkpoints(id)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON correction_memory(source_text, model);
	CREATE INDEX IF NOT EXISTS idx_results_request ON clean_results(request_id);
	CREATE INDEX IF NOT EXISTS idx_checkpoint_files ON batch_checkpoint_files(checkpoint_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) SaveRequest(ctx context.Context, job internal.CleanJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clean_requests (id, input_path, model, created_at) VALUES (?, ?, ?, ?)`,
		job.ID, job.InputPath, job.Model, job.Timestamp)
	return err
}

func (s *Store) SaveResult(ctx context.Context, requestID, serviceName, cleanedText string, latencyMs int, errMsg string) error {
	id := fmt.Sprintf("%s_%d", requestID, time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clean_results (id, request_id, service_name, cleaned_text, latency_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
		id, requestID, serviceName, cleanedText, latencyMs, errMsg)
	return err
}

// GetCachedCorrection returns a previously cleaned version of sourceText for
// the given model, bumping the usage counter on a hit.
func (s *Store) GetCachedCorrection(ctx context.Context, sourceText, model string) (string, bool, error) {
	var cleanedText string
	var invalidated bool

	err := s.db.QueryRowContext(ctx,
		`SELECT cleaned_text, invalidated FROM correction_memory WHERE source_text = ? AND model = ?`,
		normalizeText(sourceText), model).Scan(&cleanedText, &invalidated)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if invalidated {
		return "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE correction_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND model = ?`,
		time.Now(), normalizeText(sourceText), model)

	return cleanedText, true, err
}

func (s *Store) SaveCorrection(ctx context.Context, sourceText, model, cleanedText string) error {
	id := fmt.Sprintf("mem_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO correction_memory (id, source_text, model, cleaned_text, usage_count, invalidated, last_used, created_at) VALUES (?, ?, ?, ?, 1, FALSE, ?, ?)`,
		id, normalizeText(sourceText), model, cleanedText, time.Now(), time.Now())
	return err
}

// MemoryEntry is a row from the correction_memory table.
type MemoryEntry struct {
	ID          string
	SourceText  string
	Model       string
	CleanedText string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// CacheStats summarises correction memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
}

func (s *Store) InvalidateCorrection(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE correction_memory SET invalidated = TRUE WHERE id = ?`, id)
	return err
}

// DeleteCorrection permanently removes a correction memory entry by ID.
func (s *Store) DeleteCorrection(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM correction_memory WHERE id = ?`, id)
	return err
}

// ClearMemory removes all correction memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM correction_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns all correction memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, model, cleaned_text, usage_count, invalidated, last_used FROM correction_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.Model, &e.CleanedText, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the correction memory.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM correction_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Checkpoint represents a batch run's checkpoint record.
type Checkpoint struct {
	ID        string
	InputDir  string
	OutputDir string
	Pattern   string
	Model     string
	Status    string
	CreatedAt time.Time
}

// CheckpointFile is one completed document within a checkpointed batch run.
type CheckpointFile struct {
	InputPath   string
	OutputPath  string
	CleanedText string
}

// CreateCheckpoint creates a new checkpoint record and returns its ID.
func (s *Store) CreateCheckpoint(ctx context.Context, inputDir, outputDir, pattern, model string) (string, error) {
	id := fmt.Sprintf("cp_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_checkpoints (id, input_dir, output_dir, pattern, model) VALUES (?, ?, ?, ?, ?)`,
		id, inputDir, outputDir, pattern, model)
	return id, err
}

// GetCheckpoint retrieves a checkpoint by ID.
func (s *Store) GetCheckpoint(ctx context.Context, checkpointID string) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.db.QueryRowContext(ctx,
		`SELECT id, input_dir, output_dir, pattern, model, status, created_at FROM batch_checkpoints WHERE id = ?`,
		checkpointID).Scan(&cp.ID, &cp.InputDir, &cp.OutputDir, &cp.Pattern, &cp.Model, &cp.Status, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
	}
	return &cp, err
}

// ListCheckpoints returns all checkpoints, newest first.
func (s *Store) ListCheckpoints(ctx context.Context) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_dir, output_dir, pattern, model, status, created_at FROM batch_checkpoints ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.ID, &cp.InputDir, &cp.OutputDir, &cp.Pattern, &cp.Model, &cp.Status, &cp.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, cp)
	}
	return results, rows.Err()
}

// SaveCheckpointFile records a completed document for a checkpoint.
func (s *Store) SaveCheckpointFile(ctx context.Context, checkpointID, inputPath, outputPath, cleanedText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batch_checkpoint_files (checkpoint_id, input_path, output_path, cleaned_text) VALUES (?, ?, ?, ?)`,
		checkpointID, inputPath, outputPath, cleanedText)
	return err
}

// GetCheckpointFiles returns all completed documents for a checkpoint as an
// input-path keyed map.
func (s *Store) GetCheckpointFiles(ctx context.Context, checkpointID string) (map[string]CheckpointFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input_path, output_path, cleaned_text FROM batch_checkpoint_files WHERE checkpoint_id = ?`,
		checkpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make(map[string]CheckpointFile)
	for rows.Next() {
		var f CheckpointFile
		if err := rows.Scan(&f.InputPath, &f.OutputPath, &f.CleanedText); err != nil {
			return nil, err
		}
		files[f.InputPath] = f
	}
	return files, rows.Err()
}

// CompleteCheckpoint marks a checkpoint as completed.
func (s *Store) CompleteCheckpoint(ctx context.Context, checkpointID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE batch_checkpoints SET status = 'completed', updated_at = ? WHERE id = ?`,
		time.Now(), checkpointID)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization for
// consistent cache key comparison. OCR output mixes composed and decomposed
// accents freely.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
