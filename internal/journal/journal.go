package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eupholio/costparity/internal/canonical"
	"github.com/eupholio/costparity/internal/runner"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial calls table
const currentSchemaVersion = 1

// Memory is the path of a private in-memory journal.
const Memory = ":memory:"

// Journal is an append-only log of engine calls.
type Journal struct {
	db    *sql.DB
	runID string
}

// Open creates or opens a journal at path and tags new rows with runID.
//
// With a single connection, ":memory:" stays one database for the life of
// the Journal.
func Open(path, runID string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Journal{db: db, runID: runID}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Entry is one journaled call.
type Entry struct {
	Seq         int64  `json:"seq"`
	RunID       string `json:"run_id"`
	Case        string `json:"case"`
	Engine      string `json:"engine"`
	Method      string `json:"method,omitempty"`
	RequestHash string `json:"request_hash"`
	ExitCode    int    `json:"exit_code"`
	DurationUS  int64  `json:"duration_us"`
	Error       string `json:"error,omitempty"`
}

// Record appends c. The request body is fingerprinted with canonical.Hash,
// so reformatting a request never changes its hash.
func (j *Journal) Record(ctx context.Context, c runner.Call) error {
	domain := canonical.DomainReferenceRequest
	if c.Method != "" {
		domain = canonical.DomainCandidateRequest
	}
	var hash string
	if len(c.Request) > 0 {
		var err error
		hash, err = canonical.Hash(domain, c.Request)
		if err != nil {
			return fmt.Errorf("hash request for %s/%s: %w", c.Case, c.Engine, err)
		}
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO calls (run_id, case_name, engine, method, request_hash, exit_code, duration_us, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.runID, c.Case, c.Engine, c.Method, hash, c.ExitCode, c.Duration.Microseconds(), c.Err)
	if err != nil {
		return fmt.Errorf("insert call %s/%s: %w", c.Case, c.Engine, err)
	}
	return nil
}

// Hook adapts Record to a runner.CallHook. Journal failures never affect a
// run; they are logged once at warn level.
func (j *Journal) Hook(logger *slog.Logger) runner.CallHook {
	var once sync.Once
	return func(ctx context.Context, c runner.Call) {
		// Record after cancellation too; the call already happened.
		if err := j.Record(context.WithoutCancel(ctx), c); err != nil {
			once.Do(func() {
				logger.Warn("journal write failed", "case", c.Case, "engine", c.Engine, "error", err)
			})
		}
	}
}

// List returns every entry ordered by case, engine, method and seq.
func (j *Journal) List(ctx context.Context) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, run_id, case_name, engine, method, request_hash, exit_code, duration_us, error
		FROM calls
		ORDER BY case_name COLLATE BINARY ASC, engine ASC, method ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.RunID, &e.Case, &e.Engine, &e.Method, &e.RequestHash, &e.ExitCode, &e.DurationUS, &e.Error); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return entries, nil
}
