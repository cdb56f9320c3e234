package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists usage sessions and goals in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteStore creates or opens the usage database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "usage.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		app TEXT NOT NULL,
		start_at DATETIME NOT NULL,
		end_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_app ON sessions(app);
	CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_at);

	CREATE TABLE IF NOT EXISTS goals (
		app TEXT PRIMARY KEY,
		daily_limit_min INTEGER NOT NULL,
		streak_days INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Stamp install date on first open.
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('install_date', ?)`,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// RecordSession appends one closed session.
func (s *SQLiteStore) RecordSession(ctx context.Context, us UsageSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, app, start_at, end_at, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		us.ID, us.App, us.Start.UTC(), us.End.UTC(), us.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// SessionsBetween returns all sessions overlapping [from, to).
func (s *SQLiteStore) SessionsBetween(ctx context.Context, from, to time.Time) ([]UsageSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, app, start_at, end_at, duration_ms FROM sessions
		 WHERE start_at >= ? AND start_at < ? ORDER BY start_at`,
		from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// AppSessions returns sessions of one app in [from, to).
func (s *SQLiteStore) AppSessions(ctx context.Context, app string, from, to time.Time) ([]UsageSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, app, start_at, end_at, duration_ms FROM sessions
		 WHERE app = ? AND start_at >= ? AND start_at < ? ORDER BY start_at`,
		app, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query app sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]UsageSession, error) {
	var out []UsageSession
	for rows.Next() {
		var us UsageSession
		var durMS int64
		if err := rows.Scan(&us.ID, &us.App, &us.Start, &us.End, &durMS); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		us.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, us)
	}
	return out, rows.Err()
}

// Goal returns the configured goal for app, or nil when unset.
func (s *SQLiteStore) Goal(ctx context.Context, app string) (*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var g Goal
	err := s.db.QueryRowContext(ctx,
		`SELECT app, daily_limit_min, streak_days FROM goals WHERE app = ?`, app).
		Scan(&g.App, &g.DailyLimitMinutes, &g.StreakDays)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query goal: %w", err)
	}
	return &g, nil
}

// SetGoal upserts the goal for one app.
func (s *SQLiteStore) SetGoal(ctx context.Context, g Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (app, daily_limit_min, streak_days, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(app) DO UPDATE SET daily_limit_min=excluded.daily_limit_min,
		   streak_days=excluded.streak_days, updated_at=excluded.updated_at`,
		g.App, g.DailyLimitMinutes, g.StreakDays, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set goal: %w", err)
	}
	return nil
}

// InstallDate returns the timestamp recorded on first open.
func (s *SQLiteStore) InstallDate(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'install_date'`).Scan(&v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query install date: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad install date %q: %w", v, err)
	}
	return ts, nil
}
