package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

type templateStore struct {
	pool *pgxpool.Pool
}

func (t *templateStore) Create(ctx context.Context, tmpl *types.Template) error {
	err := t.pool.QueryRow(ctx, `
		INSERT INTO templates (name, prompt) VALUES ($1, $2)
		RETURNING id, created_at
	`, tmpl.Name, tmpl.Prompt).Scan(&tmpl.ID, &tmpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (t *templateStore) GetByID(ctx context.Context, id int64) (*types.Template, error) {
	var tmpl types.Template
	err := t.pool.QueryRow(ctx, `
		SELECT id, name, prompt, created_at FROM templates WHERE id = $1
	`, id).Scan(&tmpl.ID, &tmpl.Name, &tmpl.Prompt, &tmpl.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &tmpl, nil
}

func (t *templateStore) List(ctx context.Context) ([]types.Template, error) {
	rows, err := t.pool.Query(ctx, `SELECT id, name, prompt, created_at FROM templates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Template
	for rows.Next() {
		var tmpl types.Template
		if err := rows.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Prompt, &tmpl.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, rows.Err()
}
