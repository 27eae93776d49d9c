// Package audit keeps a provenance trail of resolutions in SQLite: where each
// request was answered, how long it took and why it fell back to the cloud.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/hybrid"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

// Store is the SQLite-backed audit log. It implements hybrid.Recorder.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the audit database at path, creating it and its tables if they
// don't exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("create audit directory", err).WithContext("path", dir).Build()
		}
	}

	db, err := openDB(path)
	if err != nil {
		return nil, storeErr("open audit database", err).WithContext("path", path).Build()
	}

	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, storeErr("initialize audit schema", err).Build()
	}
	return s, nil
}

// openDB opens a single SQLite database with optimal settings.
func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS resolutions (
		id              TEXT PRIMARY KEY,
		started_at      INTEGER NOT NULL,
		finished_at     INTEGER NOT NULL,
		source          TEXT NOT NULL DEFAULT '',
		calls_json      TEXT NOT NULL DEFAULT '[]',
		total_time_ms   REAL NOT NULL DEFAULT 0,
		local_ms        REAL NOT NULL DEFAULT 0,
		remote_ms       REAL NOT NULL DEFAULT 0,
		local_attempts  INTEGER NOT NULL DEFAULT 0,
		local_tokens    INTEGER NOT NULL DEFAULT 0,
		remote_tokens   INTEGER NOT NULL DEFAULT 0,
		fast_path       INTEGER NOT NULL DEFAULT 0,
		parts           INTEGER NOT NULL DEFAULT 0,
		max_depth       INTEGER NOT NULL DEFAULT 0,
		reason          TEXT NOT NULL DEFAULT '',
		error_message   TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_resolutions_started ON resolutions(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_resolutions_source ON resolutions(source);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return ensureSchemaVersion(s.db, 1, "Initial audit schema")
}

func ensureSchemaVersion(db *sql.DB, version int, description string) error {
	var current sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return err
	}

	if !current.Valid || int(current.Int64) < version {
		_, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			version,
			description,
		)
		return err
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Size returns the size of the database file in bytes, or 0 if unknown.
func (s *Store) Size() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Record implements hybrid.Recorder.
func (s *Store) Record(ctx context.Context, rec hybrid.Record) error {
	calls := rec.Calls
	if calls == nil {
		calls = []protocol.Call{}
	}
	callsJSON, err := json.Marshal(calls)
	if err != nil {
		return storeErr("encode calls", err).Build()
	}

	var errMsg string
	if rec.Err != nil {
		errMsg = rec.Err.Error()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolutions (
			id, started_at, finished_at, source, calls_json,
			total_time_ms, local_ms, remote_ms, local_attempts,
			local_tokens, remote_tokens, fast_path, parts, max_depth,
			reason, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Started.UnixMilli(), rec.Finished.UnixMilli(), string(rec.Source), string(callsJSON),
		rec.TotalTimeMs, rec.LocalMs, rec.RemoteMs, rec.LocalAttempts,
		rec.LocalTokens, rec.RemoteTokens, rec.FastPath, rec.Parts, rec.MaxDepth,
		rec.Reason, errMsg,
	)
	if err != nil {
		return storeErr("insert resolution", err).WithContext("id", rec.ID).Build()
	}
	return nil
}

// Entry is one stored resolution.
type Entry struct {
	ID            string          `json:"id"`
	Started       time.Time       `json:"started"`
	Finished      time.Time       `json:"finished"`
	Source        protocol.Source `json:"source,omitempty"`
	Calls         []protocol.Call `json:"function_calls"`
	TotalTimeMs   float64         `json:"total_time_ms"`
	LocalMs       float64         `json:"local_ms"`
	RemoteMs      float64         `json:"remote_ms"`
	LocalAttempts int             `json:"local_attempts"`
	LocalTokens   int             `json:"local_tokens"`
	RemoteTokens  int             `json:"remote_tokens"`
	FastPath      bool            `json:"fast_path"`
	Parts         int             `json:"parts"`
	MaxDepth      int             `json:"max_depth"`
	Reason        string          `json:"reason,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Recent returns up to limit resolutions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, source, calls_json,
			total_time_ms, local_ms, remote_ms, local_attempts,
			local_tokens, remote_tokens, fast_path, parts, max_depth,
			reason, error_message
		FROM resolutions
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storeErr("query resolutions", err).Build()
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			started, finished int64
			source, callsJSON string
		)
		if err := rows.Scan(
			&e.ID, &started, &finished, &source, &callsJSON,
			&e.TotalTimeMs, &e.LocalMs, &e.RemoteMs, &e.LocalAttempts,
			&e.LocalTokens, &e.RemoteTokens, &e.FastPath, &e.Parts, &e.MaxDepth,
			&e.Reason, &e.Error,
		); err != nil {
			return nil, storeErr("scan resolution", err).Build()
		}
		e.Started = time.UnixMilli(started)
		e.Finished = time.UnixMilli(finished)
		e.Source = protocol.Source(source)
		if err := json.Unmarshal([]byte(callsJSON), &e.Calls); err != nil {
			return nil, storeErr("decode calls", err).WithContext("id", e.ID).Build()
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate resolutions", err).Build()
	}
	return out, nil
}

// Summary aggregates the whole audit log.
type Summary struct {
	Total         int            `json:"total"`
	OnDevice      int            `json:"on_device"`
	Cloud         int            `json:"cloud"`
	Errors        int            `json:"errors"`
	FastPath      int            `json:"fast_path"`
	OnDeviceRatio float64        `json:"on_device_ratio"`
	AvgLatencyMs  float64        `json:"avg_latency_ms"`
	Reasons       map[string]int `json:"fallback_reasons,omitempty"`
}

// Summary returns per-source counts and averages over every stored resolution.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	sum := &Summary{Reasons: make(map[string]int)}

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN source = ? AND error_message = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = ? AND error_message = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error_message != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN fast_path != 0 AND error_message = '' THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN error_message = '' THEN total_time_ms END)
		FROM resolutions
	`, string(protocol.SourceOnDevice), string(protocol.SourceCloud)).Scan(
		&sum.Total, &sum.OnDevice, &sum.Cloud, &sum.Errors, &sum.FastPath, &avg,
	)
	if err != nil {
		return nil, storeErr("summarize resolutions", err).Build()
	}
	if avg.Valid {
		sum.AvgLatencyMs = avg.Float64
	}
	if answered := sum.OnDevice + sum.Cloud; answered > 0 {
		sum.OnDeviceRatio = float64(sum.OnDevice) / float64(answered)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, COUNT(*) FROM resolutions
		WHERE source = ? AND reason != ''
		GROUP BY reason
	`, string(protocol.SourceCloud))
	if err != nil {
		return nil, storeErr("summarize fallback reasons", err).Build()
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, storeErr("scan fallback reason", err).Build()
		}
		sum.Reasons[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate fallback reasons", err).Build()
	}
	return sum, nil
}

// Prune deletes resolutions that started before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resolutions WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, storeErr("prune resolutions", err).Build()
	}
	return res.RowsAffected()
}

func storeErr(msg string, err error) *errors.Builder {
	return errors.NewBuilder(errors.CodeStoreFailed, msg).System().Wrap(err)
}
