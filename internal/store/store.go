// Package store defines the persistence interfaces for the draftcue core.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/draftcue/draftcue/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// translate it to a negative result rather than a failure.
var ErrNotFound = errors.New("record not found")

// DefaultDueLimit caps per-tick work when no override is configured.
const DefaultDueLimit = 5

// ScheduleStore owns schedule records. ClaimNextRun is the only concurrency
// primitive: a single conditional write on next_run, never read-then-write.
type ScheduleStore interface {
	Create(ctx context.Context, s *types.Schedule) error
	CreateBulk(ctx context.Context, schedules []*types.Schedule) (int, error)
	GetByID(ctx context.Context, id int64) (*types.Schedule, error)
	List(ctx context.Context) ([]types.Schedule, error)

	// GetDue returns active schedules with next_run <= now, ordered by
	// next_run ascending, at most limit rows.
	GetDue(ctx context.Context, now time.Time, limit int) ([]types.Schedule, error)

	// Update persists frequency/topic/rules edits. It never touches
	// next_run; that field belongs to ClaimNextRun.
	Update(ctx context.Context, s *types.Schedule) error

	// ClaimNextRun atomically advances next_run from expectedOld to
	// newNext, recording the old value as last_run. It returns true only
	// when exactly one row was modified: under concurrent claims for the
	// same expectedOld, exactly one caller wins.
	ClaimNextRun(ctx context.Context, id int64, newNext, expectedOld time.Time) (bool, error)

	// RescheduleNextRun moves a pending next_run from expectedOld to
	// newNext without recording a run. The conditional write mirrors
	// ClaimNextRun, so a reschedule and a concurrent claim cannot both
	// apply to the same pending run.
	RescheduleNextRun(ctx context.Context, id int64, newNext, expectedOld time.Time) (bool, error)

	SetActive(ctx context.Context, id int64, active bool) (bool, error)

	// Delete is idempotent: deleting an absent id returns false, not an
	// error.
	Delete(ctx context.Context, id int64) (bool, error)

	// DeleteBulk removes the given ids in a single set-membership
	// statement and returns how many rows actually existed.
	DeleteBulk(ctx context.Context, ids []int64) (int64, error)
}

// HistoryStore owns append-mostly execution history and its log entries.
type HistoryStore interface {
	Create(ctx context.Context, rec *types.HistoryRecord) error

	// Finalize sets the terminal status and completion timestamp exactly
	// once; the transition is validated against the history lifecycle.
	Finalize(ctx context.Context, id int64, status types.HistoryStatus, title, content, errMsg string) error

	// GetByID hydrates the full record including content and the ordered
	// log entries. This is the only path that reads payload columns.
	GetByID(ctx context.Context, id int64) (*types.HistoryRecord, error)

	AddLogEntry(ctx context.Context, entry *types.LogEntry) error

	// GetHistory lists records for display: projected columns only (never
	// content or logs), paginated via late row lookup, filters bound as
	// parameters exactly once.
	GetHistory(ctx context.Context, filter types.HistoryFilter) (*types.HistoryPage, error)
}

// TemplateStore owns the content templates schedules reference.
type TemplateStore interface {
	Create(ctx context.Context, t *types.Template) error
	GetByID(ctx context.Context, id int64) (*types.Template, error)
	List(ctx context.Context) ([]types.Template, error)
}

// Store bundles the three stores behind one backend handle.
type Store interface {
	Schedules() ScheduleStore
	History() HistoryStore
	Templates() TemplateStore

	Ping(ctx context.Context) error
	Close()
}
