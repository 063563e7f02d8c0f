// Package store keeps the local index of calendar events created for tasks.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"edger/internal/service"
	"edger/internal/store/migrations"
)

// Store is a SQLite-backed implementation of service.Links.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ service.Links = (*Store)(nil)

// Open opens or creates the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_links.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// SaveLink stores or replaces the link of link.EventID.
func (s *Store) SaveLink(ctx context.Context, link service.Link) error {
	if link.EventID == "" {
		return errors.New("link has no event id")
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (event_id, calendar_id, task_title, start_ns, end_ns, created_ns)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			calendar_id = excluded.calendar_id,
			task_title = excluded.task_title,
			start_ns = excluded.start_ns,
			end_ns = excluded.end_ns
	`, link.EventID, link.CalendarID, link.TaskTitle,
		link.Start.UnixNano(), link.End.UnixNano(), link.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving link: %w", err)
	}
	return nil
}

const linkColumns = "event_id, calendar_id, task_title, start_ns, end_ns, created_ns"

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (service.Link, error) {
	var l service.Link
	var start, end, created int64
	if err := row.Scan(&l.EventID, &l.CalendarID, &l.TaskTitle, &start, &end, &created); err != nil {
		return service.Link{}, err
	}
	l.Start = time.Unix(0, start).UTC()
	l.End = time.Unix(0, end).UTC()
	l.CreatedAt = time.Unix(0, created).UTC()
	return l, nil
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (service.Link, error) {
	l, err := scanLink(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return service.Link{}, service.ErrNotFound
	}
	if err != nil {
		return service.Link{}, fmt.Errorf("reading link: %w", err)
	}
	return l, nil
}

// LinkByTask returns the most recent link of the task title, matched
// case-insensitively.
func (s *Store) LinkByTask(ctx context.Context, title string) (service.Link, error) {
	return s.queryOne(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE task_title = ? COLLATE NOCASE
		ORDER BY created_ns DESC
		LIMIT 1
	`, strings.TrimSpace(title))
}

// LinkByEvent returns the link of an event.
func (s *Store) LinkByEvent(ctx context.Context, eventID string) (service.Link, error) {
	return s.queryOne(ctx, `SELECT `+linkColumns+` FROM links WHERE event_id = ?`, eventID)
}

// Links returns every link ordered by start.
func (s *Store) Links(ctx context.Context) ([]service.Link, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links ORDER BY start_ns, event_id`)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	defer rows.Close()

	var links []service.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("reading link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// DeleteLink removes the link of an event. Missing links are ignored.
func (s *Store) DeleteLink(ctx context.Context, eventID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	return nil
}
