package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

type scheduleStore struct {
	pool *pgxpool.Pool
}

const scheduleColumns = `id, template_id, frequency, topic, rules, next_run, last_run, is_active, created_at, updated_at`

// Create inserts a schedule and assigns its id and timestamps.
func (s *scheduleStore) Create(ctx context.Context, sched *types.Schedule) error {
	rulesJSON, err := marshalRules(sched.Rules)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO schedules (template_id, frequency, topic, rules, next_run, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, sched.TemplateID, string(sched.Frequency), sched.Topic, rulesJSON, sched.NextRun, sched.Active).
		Scan(&sched.ID, &sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// CreateBulk inserts all schedules in one transaction and returns how many
// were created. The transaction is all-or-nothing.
func (s *scheduleStore) CreateBulk(ctx context.Context, schedules []*types.Schedule) (int, error) {
	if len(schedules) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, sched := range schedules {
		rulesJSON, err := marshalRules(sched.Rules)
		if err != nil {
			return 0, err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO schedules (template_id, frequency, topic, rules, next_run, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`, sched.TemplateID, string(sched.Frequency), sched.Topic, rulesJSON, sched.NextRun, sched.Active).
			Scan(&sched.ID, &sched.CreatedAt, &sched.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert schedule: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(schedules), nil
}

func (s *scheduleStore) GetByID(ctx context.Context, id int64) (*types.Schedule, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *scheduleStore) List(ctx context.Context) ([]types.Schedule, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// GetDue selects active schedules whose next_run has passed, oldest first.
func (s *scheduleStore) GetDue(ctx context.Context, now time.Time, limit int) ([]types.Schedule, error) {
	if limit <= 0 {
		limit = store.DefaultDueLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE is_active AND next_run <= $1
		ORDER BY next_run ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// Update persists editable fields. next_run is deliberately absent: edits
// must not bypass the claim field.
func (s *scheduleStore) Update(ctx context.Context, sched *types.Schedule) error {
	rulesJSON, err := marshalRules(sched.Rules)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE schedules
		SET template_id = $1, frequency = $2, topic = $3, rules = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
	`, sched.TemplateID, string(sched.Frequency), sched.Topic, rulesJSON, sched.Active, sched.ID)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClaimNextRun is the optimistic-lock primitive: a single conditional UPDATE
// whose predicate requires the persisted next_run to still equal the
// caller's expected value. All three values are bound once as parameters;
// the expected timestamp is never re-interpreted, so a second substitution
// pass cannot exist.
func (s *scheduleStore) ClaimNextRun(ctx context.Context, id int64, newNext, expectedOld time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE schedules
		SET last_run = next_run, next_run = $1, updated_at = NOW()
		WHERE id = $2 AND next_run = $3
	`, newNext, id, expectedOld)
	if err != nil {
		return false, fmt.Errorf("claim next run: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RescheduleNextRun re-arms a pending run at a new time. Unlike a claim it
// leaves last_run alone; the run has not happened yet.
func (s *scheduleStore) RescheduleNextRun(ctx context.Context, id int64, newNext, expectedOld time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE schedules
		SET next_run = $1, updated_at = NOW()
		WHERE id = $2 AND next_run = $3
	`, newNext, id, expectedOld)
	if err != nil {
		return false, fmt.Errorf("reschedule next run: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *scheduleStore) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE schedules SET is_active = $1, updated_at = NOW() WHERE id = $2
	`, active, id)
	if err != nil {
		return false, fmt.Errorf("set active: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes one schedule; absent ids are reported, not errors.
func (s *scheduleStore) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteBulk deletes by set membership in one statement.
func (s *scheduleStore) DeleteBulk(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM schedules WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete schedules: %w", err)
	}
	return tag.RowsAffected(), nil
}

func marshalRules(rs *types.RuleSet) ([]byte, error) {
	if rs == nil {
		return nil, nil
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("marshal rules: %w", err)
	}
	return data, nil
}

func scanSchedule(row pgx.Row) (*types.Schedule, error) {
	var (
		sched     types.Schedule
		frequency string
		rulesJSON []byte
	)
	err := row.Scan(&sched.ID, &sched.TemplateID, &frequency, &sched.Topic, &rulesJSON,
		&sched.NextRun, &sched.LastRun, &sched.Active, &sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sched.Frequency = types.Frequency(frequency)
	if len(rulesJSON) > 0 {
		var rs types.RuleSet
		if err := json.Unmarshal(rulesJSON, &rs); err != nil {
			return nil, fmt.Errorf("unmarshal rules: %w", err)
		}
		sched.Rules = &rs
	}
	return &sched, nil
}

func collectSchedules(rows pgx.Rows) ([]types.Schedule, error) {
	var out []types.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sched)
	}
	return out, rows.Err()
}
