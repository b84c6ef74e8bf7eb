// Package history records completed analyses in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/legalyze/internal/history/migrations"
	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

// ErrNotFound is returned by Get for unknown analysis IDs
var ErrNotFound = errors.New("analysis not found")

// timeLayout is fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one row of the history table
type Entry struct {
	ID         string
	Document   string
	Source     string
	RiskScore  int
	Clauses    int
	Records    int
	AnalyzedAt time.Time
}

// Level returns the risk level for the stored score
func (e Entry) Level() score.Level {
	return score.LevelFor(e.RiskScore)
}

// Store is the SQLite-backed analysis history
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) history.db in dir.
// An empty dir defaults to ~/.legalyze/data.
func Open(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".legalyze", "data")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Name identifies the store in logs and warnings
func (s *Store) Name() string {
	return "history"
}

// Save records a report, replacing any earlier row with the same ID
func (s *Store) Save(ctx context.Context, r *model.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, document, source, risk_score, clauses, records, analyzed_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			source = excluded.source,
			risk_score = excluded.risk_score,
			clauses = excluded.clauses,
			records = excluded.records,
			analyzed_at = excluded.analyzed_at,
			report = excluded.report
	`,
		r.ID,
		r.Document.Name,
		r.Document.Source,
		r.Risk.TotalScore,
		r.Document.Clauses,
		len(r.Risk.Records),
		r.Document.AnalyzedAt.UTC().Format(timeLayout),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("saving analysis %s: %w", r.ID, err)
	}
	return nil
}

// List returns the most recent analyses, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, document, source, risk_score, clauses, records, analyzed_at
		FROM analyses ORDER BY analyzed_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var analyzedAt string
		if err := rows.Scan(&e.ID, &e.Document, &e.Source, &e.RiskScore, &e.Clauses, &e.Records, &analyzedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		if e.AnalyzedAt, err = time.Parse(timeLayout, analyzedAt); err != nil {
			return nil, fmt.Errorf("parsing analyzed_at %q: %w", analyzedAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the full stored report for an analysis ID
func (s *Store) Get(ctx context.Context, id string) (*model.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT report FROM analyses WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis %s: %w", id, err)
	}

	var r model.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("unmarshalling report %s: %w", id, err)
	}
	return &r, nil
}

// migrate applies pending NNN_name.up.sql files in version order
func (s *Store) migrate(fsys fs.FS) error {
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
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
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

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}
