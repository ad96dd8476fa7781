// Package store persists projects and segments in a local SQLite database.
// Segment status updates are guarded so illegal state transitions fail at the
// storage layer too, not just in callers.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/clipshear/clipshear/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrIllegalTransition is returned when a status update does not match the
// segment's current state.
var ErrIllegalTransition = fmt.Errorf("illegal segment status transition")

// Store is the persistence surface the pipeline consumes.
type Store interface {
	CreateProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, id string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)
	UpdateProject(ctx context.Context, p *types.Project) error
	DeleteProject(ctx context.Context, id string) error

	CreateSegments(ctx context.Context, segs []types.Segment) error
	GetSegment(ctx context.Context, id string) (*types.Segment, error)
	ListSegments(ctx context.Context, projectID string) ([]*types.Segment, error)

	ApproveSegment(ctx context.Context, id string) error
	ResetSegment(ctx context.Context, id string) error
	MarkExtracting(ctx context.Context, id string) error
	MarkExtracted(ctx context.Context, id, clipPath string) error
	MarkFailed(ctx context.Context, id, reason string) error

	Close() error
}

// SQLite implements Store on modernc.org/sqlite.
type SQLite struct {
	db  *sql.DB
	log *logrus.Logger
}

var _ Store = (*SQLite)(nil)

// Open opens (creating if needed) the database at dbPath, applies pending
// migrations, and sweeps segments interrupted mid-extraction into Failed.
func Open(dbPath string, log *logrus.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := s.sweepInterrupted(); err != nil && log != nil {
		log.WithError(err).Warn("failed to sweep interrupted segments")
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// DB exposes the underlying handle for tests.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range entries {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.isMigrationApplied(name) {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if s.log != nil {
			s.log.WithField("name", name).Info("applied migration")
		}
	}
	return nil
}

func (s *SQLite) isMigrationApplied(name string) bool {
	var exists int
	if err := s.db.QueryRow(
		"SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'",
	).Scan(&exists); err != nil {
		return false
	}
	var applied int
	err := s.db.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// sweepInterrupted marks segments left in Extracting by a previous process
// as Failed; encodes do not survive a restart.
func (s *SQLite) sweepInterrupted() error {
	_, err := s.db.Exec(
		`UPDATE segments SET status = ?, failure_reason = 'interrupted by restart', updated_at = ? WHERE status = ?`,
		types.SegmentFailed, nowRFC3339(), types.SegmentExtracting)
	return err
}

func (s *SQLite) CreateProject(ctx context.Context, p *types.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, video_path, duration_ms, status, transcript_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.VideoPath, p.Duration.Milliseconds(), p.Status,
		nullString(p.TranscriptPath), fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	return err
}

func (s *SQLite) GetProject(ctx context.Context, id string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, video_path, duration_ms, status, transcript_path, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

func (s *SQLite) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, video_path, duration_ms, status, transcript_path, created_at, updated_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateProject(ctx context.Context, p *types.Project) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, duration_ms = ?, status = ?, transcript_path = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Duration.Milliseconds(), p.Status, nullString(p.TranscriptPath), nowRFC3339(), p.ID)
	return err
}

// DeleteProject removes the project; segments go with it via cascade.
func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (s *SQLite) CreateSegments(ctx context.Context, segs []types.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, seg := range segs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO segments (id, project_id, start_ms, end_ms, transcript_text, summary, reasoning, clip_path, status, failure_reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, seg.ID, seg.ProjectID, seg.Start.Milliseconds(), seg.End.Milliseconds(),
			seg.TranscriptText, seg.Summary, seg.Reasoning,
			nullString(seg.ClipPath), seg.Status, nullString(seg.FailureReason),
			fmtTime(seg.CreatedAt), fmtTime(seg.UpdatedAt)); err != nil {
			return fmt.Errorf("insert segment %s: %w", seg.ID, err)
		}
	}
	return tx.Commit()
}

const segmentColumns = `id, project_id, start_ms, end_ms, transcript_text, summary, reasoning, clip_path, status, failure_reason, created_at, updated_at`

func (s *SQLite) GetSegment(ctx context.Context, id string) (*types.Segment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+segmentColumns+" FROM segments WHERE id = ?", id)
	return scanSegment(row)
}

func (s *SQLite) ListSegments(ctx context.Context, projectID string) ([]*types.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+segmentColumns+" FROM segments WHERE project_id = ? ORDER BY start_ms ASC, created_at ASC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// ApproveSegment moves a Generated segment to Approved.
func (s *SQLite) ApproveSegment(ctx context.Context, id string) error {
	return s.transition(ctx, id, types.SegmentApproved,
		`UPDATE segments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		types.SegmentApproved, nowRFC3339(), id, types.SegmentGenerated)
}

// ResetSegment moves a Failed segment back to Approved for a retry, clearing
// the failure reason.
func (s *SQLite) ResetSegment(ctx context.Context, id string) error {
	return s.transition(ctx, id, types.SegmentApproved,
		`UPDATE segments SET status = ?, failure_reason = NULL, updated_at = ? WHERE id = ? AND status = ?`,
		types.SegmentApproved, nowRFC3339(), id, types.SegmentFailed)
}

func (s *SQLite) MarkExtracting(ctx context.Context, id string) error {
	return s.transition(ctx, id, types.SegmentExtracting,
		`UPDATE segments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		types.SegmentExtracting, nowRFC3339(), id, types.SegmentApproved)
}

func (s *SQLite) MarkExtracted(ctx context.Context, id, clipPath string) error {
	return s.transition(ctx, id, types.SegmentExtracted,
		`UPDATE segments SET status = ?, clip_path = ?, failure_reason = NULL, updated_at = ? WHERE id = ? AND status = ?`,
		types.SegmentExtracted, clipPath, nowRFC3339(), id, types.SegmentExtracting)
}

func (s *SQLite) MarkFailed(ctx context.Context, id, reason string) error {
	return s.transition(ctx, id, types.SegmentFailed,
		`UPDATE segments SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ? AND status = ?`,
		types.SegmentFailed, reason, nowRFC3339(), id, types.SegmentExtracting)
}

// transition runs a guarded status update and reports ErrIllegalTransition
// when the guard did not match any row.
func (s *SQLite) transition(ctx context.Context, id string, to types.SegmentStatus, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		cur, getErr := s.GetSegment(ctx, id)
		if getErr == nil && cur != nil {
			return fmt.Errorf("%w: segment %s is %s, cannot become %s", ErrIllegalTransition, id, cur.Status, to)
		}
		return fmt.Errorf("%w: segment %s not found", ErrIllegalTransition, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*types.Project, error) {
	var p types.Project
	var durationMS int64
	var transcriptPath sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.VideoPath, &durationMS, &p.Status, &transcriptPath, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Duration = time.Duration(durationMS) * time.Millisecond
	p.TranscriptPath = transcriptPath.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func scanSegment(row rowScanner) (*types.Segment, error) {
	var seg types.Segment
	var startMS, endMS int64
	var clipPath, failureReason sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&seg.ID, &seg.ProjectID, &startMS, &endMS,
		&seg.TranscriptText, &seg.Summary, &seg.Reasoning,
		&clipPath, &seg.Status, &failureReason, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	seg.Start = time.Duration(startMS) * time.Millisecond
	seg.End = time.Duration(endMS) * time.Millisecond
	seg.ClipPath = clipPath.String
	seg.FailureReason = failureReason.String
	seg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	seg.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &seg, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }
