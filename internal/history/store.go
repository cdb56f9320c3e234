// Package history exposes read access to past usage sessions and per-app
// goal configuration. The engine only ever sees this narrow interface so
// the core stays testable without any platform storage.
package history

import (
	"context"
	"time"
)

// UsageSession is one persisted period of foreground use.
type UsageSession struct {
	ID       string
	App      string
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Goal is per-app goal/streak configuration.
type Goal struct {
	App               string
	DailyLimitMinutes int
	StreakDays        int
}

// Store is the usage-history collaborator consumed by the context builder
// and persona classifier.
type Store interface {
	RecordSession(ctx context.Context, s UsageSession) error
	SessionsBetween(ctx context.Context, from, to time.Time) ([]UsageSession, error)
	AppSessions(ctx context.Context, app string, from, to time.Time) ([]UsageSession, error)
	Goal(ctx context.Context, app string) (*Goal, error)
	SetGoal(ctx context.Context, g Goal) error
	InstallDate(ctx context.Context) (time.Time, error)
	Close() error
}
