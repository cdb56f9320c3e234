package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"nudge/internal/types"
)

// SQLiteStore persists decision explanations, feedback, and observed
// intervention outcomes. It doubles as the burden tracker's history source
// and the context builder's success source.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates or opens the decision database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "decisions.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		ts DATETIME NOT NULL,
		app TEXT NOT NULL,
		type TEXT NOT NULL,
		allowed INTEGER NOT NULL,
		blocking_reason TEXT,
		decision_source TEXT NOT NULL,
		opportunity_score INTEGER NOT NULL,
		opportunity_level TEXT NOT NULL,
		breakdown_json TEXT,
		persona TEXT NOT NULL,
		persona_confidence TEXT NOT NULL,
		persona_policy TEXT NOT NULL,
		gates_json TEXT,
		burden_score REAL NOT NULL,
		burden_level TEXT NOT NULL,
		burden_reliable INTEGER NOT NULL,
		applied_multiplier REAL NOT NULL,
		session_duration_ms INTEGER NOT NULL,
		summary TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(ts);
	CREATE INDEX IF NOT EXISTS idx_decisions_app ON decisions(app);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_ts ON feedback(ts);

	CREATE TABLE IF NOT EXISTS outcomes (
		decision_id TEXT PRIMARY KEY,
		app TEXT NOT NULL,
		hour INTEGER NOT NULL,
		disengaged INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_app_hour ON outcomes(app, hour);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append writes one explanation. Explanations are never updated.
func (s *SQLiteStore) Append(ctx context.Context, e types.DecisionExplanation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	breakdown, err := json.Marshal(e.OpportunityBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	gates, err := json.Marshal(e.Gates)
	if err != nil {
		return fmt.Errorf("failed to marshal gates: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, ts, app, type, allowed, blocking_reason, decision_source,
			opportunity_score, opportunity_level, breakdown_json,
			persona, persona_confidence, persona_policy, gates_json,
			burden_score, burden_level, burden_reliable, applied_multiplier,
			session_duration_ms, summary
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Timestamp.UTC(), e.App, string(e.Type), e.Allowed, e.BlockingReason,
		string(e.DecisionSource), e.OpportunityScore, e.OpportunityLevel, string(breakdown),
		e.Persona, e.PersonaConfidence, e.PersonaPolicy, string(gates),
		e.BurdenScore, e.BurdenLevel, e.BurdenReliable, e.AppliedMultiplier,
		e.SessionDuration.Milliseconds(), e.Summary)
	if err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

// Recent returns the most recent explanations, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]types.DecisionExplanation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, app, type, allowed, blocking_reason, decision_source,
		       opportunity_score, opportunity_level, breakdown_json,
		       persona, persona_confidence, persona_policy, gates_json,
		       burden_score, burden_level, burden_reliable, applied_multiplier,
		       session_duration_ms, summary
		FROM decisions ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []types.DecisionExplanation
	for rows.Next() {
		var e types.DecisionExplanation
		var typ, source, breakdown, gates string
		var blocking, summary sql.NullString
		var durMS int64
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.App, &typ, &e.Allowed, &blocking, &source,
			&e.OpportunityScore, &e.OpportunityLevel, &breakdown,
			&e.Persona, &e.PersonaConfidence, &e.PersonaPolicy, &gates,
			&e.BurdenScore, &e.BurdenLevel, &e.BurdenReliable, &e.AppliedMultiplier,
			&durMS, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		e.Type = types.InterventionType(typ)
		e.DecisionSource = types.DecisionSource(source)
		e.BlockingReason = blocking.String
		e.Summary = summary.String
		e.SessionDuration = time.Duration(durMS) * time.Millisecond
		if breakdown != "" {
			_ = json.Unmarshal([]byte(breakdown), &e.OpportunityBreakdown)
		}
		if gates != "" {
			_ = json.Unmarshal([]byte(gates), &e.Gates)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ShownSince implements burden.HistorySource: count of approved decisions
// and the most recent one.
func (s *SQLiteStore) ShownSince(ctx context.Context, since time.Time) (int, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(ts) FROM decisions WHERE allowed = 1 AND ts >= ?`,
		since.UTC()).Scan(&count, &last)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count shown: %w", err)
	}
	return count, last.Time, nil
}

// FeedbackSince implements burden.HistorySource.
func (s *SQLiteStore) FeedbackSince(ctx context.Context, since time.Time) (helpful, disruptive int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM feedback WHERE ts >= ? GROUP BY outcome`,
		since.UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return 0, 0, err
		}
		switch types.FeedbackOutcome(outcome) {
		case types.FeedbackHelpful:
			helpful = n
		case types.FeedbackDisruptive:
			disruptive = n
		}
	}
	return helpful, disruptive, rows.Err()
}

// RecordFeedback appends one feedback event.
func (s *SQLiteStore) RecordFeedback(ctx context.Context, outcome types.FeedbackOutcome, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (ts, outcome) VALUES (?, ?)`, ts.UTC(), string(outcome))
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

// RecordOutcome notes whether the user disengaged after a shown
// intervention; this feeds the learned historical-success signal.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, decisionID, app string, hour int, disengaged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO outcomes (decision_id, app, hour, disengaged) VALUES (?, ?, ?, ?)`,
		decisionID, app, hour, disengaged)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// SuccessRate implements snapshot.SuccessSource: fraction of observed
// outcomes at this app/hour that ended in disengagement.
func (s *SQLiteStore) SuccessRate(ctx context.Context, app string, hour int) (float64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total, disengaged int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(disengaged), 0) FROM outcomes WHERE app = ? AND hour = ?`,
		app, hour).Scan(&total, &disengaged)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query success rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(disengaged) / float64(total), total, nil
}
