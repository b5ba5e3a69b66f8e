package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftcue/draftcue/internal/lifecycle"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

type historyStore struct {
	pool *pgxpool.Pool
}

// listColumns is the projection for list display. Payload columns (content,
// log entries) are deliberately excluded; only GetByID reads those.
const listColumns = `h.id, h.template_id, t.name, h.status, h.generated_title,
	COALESCE(h.error_message, ''), h.created_at, h.completed_at`

const defaultPerPage = 20

// Create inserts a history record, normally with status processing.
func (h *historyStore) Create(ctx context.Context, rec *types.HistoryRecord) error {
	if rec.Status == "" {
		rec.Status = types.HistoryProcessing
	}
	err := h.pool.QueryRow(ctx, `
		INSERT INTO history (template_id, status, generated_title, content, error_message)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, created_at
	`, rec.TemplateID, string(rec.Status), rec.GeneratedTitle, rec.Content, rec.ErrorMessage).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// Finalize moves a processing record to its terminal status exactly once.
// The status predicate in the UPDATE makes a second finalization a no-op
// that surfaces as an error instead of silently overwriting the outcome.
func (h *historyStore) Finalize(ctx context.Context, id int64, status types.HistoryStatus, title, content, errMsg string) error {
	if err := lifecycle.Transition(types.HistoryProcessing, status); err != nil {
		return err
	}

	tag, err := h.pool.Exec(ctx, `
		UPDATE history
		SET status = $1, generated_title = $2, content = $3,
			error_message = NULLIF($4, ''), completed_at = NOW()
		WHERE id = $5 AND status = $6
	`, string(status), title, content, errMsg, id, string(types.HistoryProcessing))
	if err != nil {
		return fmt.Errorf("finalize history: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = h.pool.QueryRow(ctx, `SELECT status FROM history WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("finalize history: %w", err)
	}
	return fmt.Errorf("history %d already finalized as %s", id, current)
}

// GetByID hydrates the full record, content included, plus its log entries
// in insertion order.
func (h *historyStore) GetByID(ctx context.Context, id int64) (*types.HistoryRecord, error) {
	var rec types.HistoryRecord
	var status string
	err := h.pool.QueryRow(ctx, `
		SELECT h.id, h.template_id, t.name, h.status, h.generated_title, h.content,
			COALESCE(h.error_message, ''), h.created_at, h.completed_at
		FROM history h
		JOIN templates t ON t.id = h.template_id
		WHERE h.id = $1
	`, id).Scan(&rec.ID, &rec.TemplateID, &rec.TemplateName, &status, &rec.GeneratedTitle,
		&rec.Content, &rec.ErrorMessage, &rec.CreatedAt, &rec.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	rec.Status = types.HistoryStatus(status)

	rows, err := h.pool.Query(ctx, `
		SELECT id, history_id, entry_type, kind, payload, created_at
		FROM history_log
		WHERE history_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get history log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry       types.LogEntry
			kind        string
			payloadJSON []byte
		)
		if err := rows.Scan(&entry.ID, &entry.HistoryID, &entry.EntryType, &kind, &payloadJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Kind = types.LogKind(kind)
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &entry.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal log payload: %w", err)
			}
		}
		rec.Log = append(rec.Log, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AddLogEntry appends to a record's log, defaulting the classification to
// the generic LOG kind.
func (h *historyStore) AddLogEntry(ctx context.Context, entry *types.LogEntry) error {
	if entry.Kind == "" {
		entry.Kind = types.LogGeneric
	}

	var payloadJSON []byte
	if entry.Payload != nil {
		data, err := json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("marshal log payload: %w", err)
		}
		payloadJSON = data
	}

	err := h.pool.QueryRow(ctx, `
		INSERT INTO history_log (history_id, entry_type, kind, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, entry.HistoryID, entry.EntryType, string(entry.Kind), payloadJSON).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// GetHistory lists records via late row lookup: a narrow id-only page query
// first, then the projected rows for exactly that id set. Filter values are
// handed to pgx as parameters once and never spliced into the SQL text, so
// placeholder-looking literals stay literals.
func (h *historyStore) GetHistory(ctx context.Context, filter types.HistoryFilter) (*types.HistoryPage, error) {
	where, args := buildHistoryWhere(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}

	var total int
	countSQL := `SELECT COUNT(*) FROM history h JOIN templates t ON t.id = h.template_id` + where
	if err := h.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	// Phase 1: page of matching ids only.
	idSQL := `SELECT h.id FROM history h JOIN templates t ON t.id = h.template_id` + where +
		fmt.Sprintf(` ORDER BY h.created_at DESC, h.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	idArgs := append(append([]any{}, args...), perPage, (page-1)*perPage)

	rows, err := h.pool.Query(ctx, idSQL, idArgs...)
	if err != nil {
		return nil, fmt.Errorf("list history ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect history ids: %w", err)
	}

	result := &types.HistoryPage{Items: []types.HistoryRecord{}, Total: total}
	if len(ids) == 0 {
		return result, nil
	}

	// Phase 2: projected rows for exactly the page's ids.
	rows, err = h.pool.Query(ctx, `
		SELECT `+listColumns+`
		FROM history h
		JOIN templates t ON t.id = h.template_id
		WHERE h.id = ANY($1)
		ORDER BY h.created_at DESC, h.id DESC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("list history rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec types.HistoryRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.TemplateID, &rec.TemplateName, &status,
			&rec.GeneratedTitle, &rec.ErrorMessage, &rec.CreatedAt, &rec.CompletedAt); err != nil {
			return nil, err
		}
		rec.Status = types.HistoryStatus(status)
		result.Items = append(result.Items, rec)
	}
	return result, rows.Err()
}

// buildHistoryWhere combines the filters into one parameterized predicate.
// It only ever emits $N placeholders; the values themselves travel in args.
func buildHistoryWhere(filter types.HistoryFilter) (string, []any) {
	var (
		preds []string
		args  []any
	)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		preds = append(preds, fmt.Sprintf("h.status = $%d", len(args)))
	}
	if filter.TemplateID > 0 {
		args = append(args, filter.TemplateID)
		preds = append(preds, fmt.Sprintf("h.template_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		preds = append(preds, fmt.Sprintf(`(h.generated_title ILIKE $%d ESCAPE '\' OR t.name ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}

	if len(preds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

// escapeLike neutralizes LIKE metacharacters so a search term is matched
// verbatim.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
