// Package ledger records every framework launch in a local SQLite database
// so past runs, their command lines and exit codes can be listed later.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when no run matches an id or id prefix.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned when an id prefix matches more than one run.
var ErrAmbiguous = errors.New("run id prefix is ambiguous")

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Kind distinguishes training from render launches.
type Kind string

const (
	KindTrain  Kind = "train"
	KindRender Kind = "render"
)

// Run is one recorded launch.
type Run struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Scenario   string     `json:"scenario"`
	Algorithm  string     `json:"algorithm"`
	Experiment string     `json:"experiment"`
	Seed       int        `json:"seed"`
	Argv       []string   `json:"argv"`
	WorkDir    string     `json:"work_dir,omitempty"`
	Host       string     `json:"host,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Finished reports whether the run has a recorded outcome.
func (r Run) Finished() bool { return r.FinishedAt != nil }

// Status returns a short human label for the run's state.
func (r Run) Status() string {
	switch {
	case r.FinishedAt == nil:
		return "running"
	case r.Error != "":
		return "error"
	case r.ExitCode != nil && *r.ExitCode == 0:
		return "ok"
	case r.ExitCode != nil:
		return fmt.Sprintf("exit %d", *r.ExitCode)
	default:
		return "unknown"
	}
}

// Store is the SQLite-backed run ledger.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates <dir>/runs.db.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dbPath := filepath.Join(dir, "runs.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Begin records a started run, assigning it a new id when r.ID is empty.
func (s *Store) Begin(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = s.now()
	}
	argv, err := json.Marshal(r.Argv)
	if err != nil {
		return "", fmt.Errorf("encoding argv: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, scenario, algorithm, experiment, seed, argv, work_dir, host, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.Scenario, r.Algorithm, r.Experiment, r.Seed,
		string(argv), nullString(r.WorkDir), nullString(r.Host), r.StartedAt.UTC().Format(timeFormat))
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return r.ID, nil
}

// Finish records the outcome of a run.
func (s *Store) Finish(ctx context.Context, id string, exitCode int, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, exit_code = ?, error = ? WHERE id = ?`,
		s.now().UTC().Format(timeFormat), exitCode, errText, id)
	if err != nil {
		return fmt.Errorf("recording run outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns the run whose id equals or starts with idOrPrefix.
func (s *Store) Get(ctx context.Context, idOrPrefix string) (*Run, error) {
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix) + "%"

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		selectRuns+` WHERE id LIKE ? ESCAPE '\' ORDER BY started_at DESC, rowid DESC LIMIT 2`, pattern)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}

	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return &runs[0], nil
	default:
		for i := range runs {
			if runs[i].ID == idOrPrefix {
				return &runs[i], nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, idOrPrefix)
	}
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Scenario  string
	Algorithm string
	Kind      Kind
	Limit     int
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, f.Scenario)
	}
	if f.Algorithm != "" {
		where = append(where, "algorithm = ?")
		args = append(args, f.Algorithm)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}

	query := selectRuns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return scanRuns(rows)
}

// Prune deletes finished runs that started before cutoff and returns how
// many were removed. Runs still in progress are kept.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE finished_at IS NOT NULL AND started_at < ?`,
		cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

const selectRuns = `SELECT id, kind, scenario, algorithm, experiment, seed, argv, work_dir, host,
	started_at, finished_at, exit_code, error FROM runs`

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			kind       string
			argv       string
			workDir    sql.NullString
			host       sql.NullString
			startedAt  string
			finishedAt sql.NullString
			exitCode   sql.NullInt64
			errText    sql.NullString
		)
		if err := rows.Scan(&r.ID, &kind, &r.Scenario, &r.Algorithm, &r.Experiment, &r.Seed,
			&argv, &workDir, &host, &startedAt, &finishedAt, &exitCode, &errText); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Kind = Kind(kind)
		r.WorkDir = workDir.String
		r.Host = host.String
		r.Error = errText.String
		if err := json.Unmarshal([]byte(argv), &r.Argv); err != nil {
			return nil, fmt.Errorf("decoding argv for run %s: %w", r.ID, err)
		}
		t, err := time.Parse(timeFormat, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at for run %s: %w", r.ID, err)
		}
		r.StartedAt = t
		if finishedAt.Valid {
			ft, err := time.Parse(timeFormat, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing finished_at for run %s: %w", r.ID, err)
			}
			r.FinishedAt = &ft
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			r.ExitCode = &code
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
