package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS presentations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT '',
	date       TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS slides (
	id              TEXT NOT NULL,
	presentation_id TEXT NOT NULL REFERENCES presentations(id) ON DELETE CASCADE,
	idx             INTEGER NOT NULL,
	html            TEXT NOT NULL,
	version         INTEGER NOT NULL DEFAULT 0,
	edited_by       TEXT NOT NULL DEFAULT '',
	last_edited_at  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (presentation_id, idx)
);
`

// SQLiteRepository persists decks in a single SQLite file
type SQLiteRepository struct {
	db     *sql.DB
	clock  ports.TimeProvider
	logger *slog.Logger
}

var _ ports.SlideRepository = (*SQLiteRepository)(nil)

// OpenSQLite opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string, clock ports.TimeProvider, logger *slog.Logger) (*SQLiteRepository, error) {
	if clock == nil {
		clock = ports.NewRealTimeProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("repository: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repository: open: %w", err)
	}
	// every statement goes through one connection so ":memory:" stays a
	// single database and the version check cannot interleave
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("repository: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: schema: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		clock:  clock,
		logger: logger.With("service", "sqlite_repository", "path", path),
	}, nil
}

// PutPresentation replaces the stored deck and all of its slides
func (r *SQLiteRepository) PutPresentation(ctx context.Context, p *entities.Presentation) error {
	if p.ID == "" {
		return fmt.Errorf("presentation id is required")
	}

	return r.runTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(r.clock.Now())
		_, err := tx.ExecContext(ctx, `
			INSERT INTO presentations (id, title, author, date, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				author = excluded.author,
				date = excluded.date,
				updated_at = excluded.updated_at`,
			p.ID, p.Title, p.Author, formatTime(p.Date), now)
		if err != nil {
			return fmt.Errorf("upsert presentation: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE presentation_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear slides: %w", err)
		}

		for i, s := range p.Slides {
			id := s.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO slides (id, presentation_id, idx, html, version, edited_by, last_edited_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, p.ID, i, s.HTMLContent, s.Metadata.Version, s.Metadata.EditedBy, formatTime(s.Metadata.LastEditedAt))
			if err != nil {
				return fmt.Errorf("insert slide %d: %w", i, err)
			}
		}

		r.logger.Debug("presentation stored", "presentation", p.ID, "slides", len(p.Slides))
		return nil
	})
}

// GetPresentation loads the deck with its slides in index order
func (r *SQLiteRepository) GetPresentation(ctx context.Context, id string) (*entities.Presentation, error) {
	var (
		p    entities.Presentation
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, author, date FROM presentations WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Author, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("presentation %s: %w", id, ports.ErrPresentationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get presentation: %w", err)
	}
	p.Date = parseTime(date)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, idx, html, version, edited_by, last_edited_at
		FROM slides WHERE presentation_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: list slides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		p.Slides = append(p.Slides, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: list slides: %w", err)
	}
	return &p, nil
}

// GetSlide loads one slide
func (r *SQLiteRepository) GetSlide(ctx context.Context, presentationID string, index int) (*entities.Slide, error) {
	if err := r.requirePresentation(ctx, r.db, presentationID); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, idx, html, version, edited_by, last_edited_at
		FROM slides WHERE presentation_id = ? AND idx = ?`, presentationID, index)
	s, err := scanSlide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slide %s/%d: %w", presentationID, index, ports.ErrSlideNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSlide performs the versioned update inside one transaction
func (r *SQLiteRepository) SaveSlide(ctx context.Context, req entities.SaveRequest) (*entities.SaveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &entities.SaveError{StatusCode: 400, Message: err.Error(), Cause: err}
	}

	var result *entities.SaveResult
	err := r.runTx(ctx, func(tx *sql.Tx) error {
		if err := r.requirePresentation(ctx, tx, req.PresentationID); err != nil {
			return err
		}

		now := r.clock.Now().UTC()
		stamp := formatTime(now)

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM slides WHERE presentation_id = ?`, req.PresentationID).Scan(&count); err != nil {
			return fmt.Errorf("count slides: %w", err)
		}

		if req.SlideIndex == count && req.Metadata.Version == 0 {
			id := req.SlideID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO slides (id, presentation_id, idx, html, version, edited_by, last_edited_at)
				VALUES (?, ?, ?, ?, 1, ?, ?)`,
				id, req.PresentationID, req.SlideIndex, req.HTMLContent, req.Metadata.EditedBy, stamp)
			if err != nil {
				return fmt.Errorf("append slide: %w", err)
			}
			result = &entities.SaveResult{SlideID: id, Version: 1, SavedAt: now}
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE slides SET html = ?, version = version + 1, edited_by = ?, last_edited_at = ?
			WHERE presentation_id = ? AND idx = ? AND version = ?`,
			req.HTMLContent, req.Metadata.EditedBy, stamp,
			req.PresentationID, req.SlideIndex, req.Metadata.Version)
		if err != nil {
			return fmt.Errorf("update slide: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update slide: %w", err)
		}

		var (
			id      string
			version int
		)
		err = tx.QueryRowContext(ctx,
			`SELECT id, version FROM slides WHERE presentation_id = ? AND idx = ?`,
			req.PresentationID, req.SlideIndex).Scan(&id, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("slide %s/%d: %w", req.PresentationID, req.SlideIndex, ports.ErrSlideNotFound)
		}
		if err != nil {
			return fmt.Errorf("read slide version: %w", err)
		}

		if affected == 0 {
			r.logger.Info("rejecting stale save",
				"presentation", req.PresentationID,
				"index", req.SlideIndex,
				"base_version", req.Metadata.Version,
				"current_version", version)
			return conflictError(version)
		}

		result = &entities.SaveResult{SlideID: id, Version: version, SavedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) requirePresentation(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM presentations WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("presentation %s: %w", id, ports.ErrPresentationNotFound)
	}
	if err != nil {
		return fmt.Errorf("repository: lookup presentation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlide(row scanner) (*entities.Slide, error) {
	var (
		s      entities.Slide
		edited string
	)
	err := row.Scan(&s.ID, &s.Index, &s.HTMLContent, &s.Metadata.Version, &s.Metadata.EditedBy, &edited)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: scan slide: %w", err)
	}
	s.Metadata.LastEditedAt = parseTime(edited)
	return &s, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
