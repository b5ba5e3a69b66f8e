// Package postgres implements the draftcue stores on PostgreSQL.
package postgres

const schemaDDL = `
CREATE TABLE IF NOT EXISTS templates (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    prompt     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS schedules (
    id          BIGSERIAL PRIMARY KEY,
    template_id BIGINT NOT NULL REFERENCES templates(id),
    frequency   TEXT NOT NULL,
    topic       TEXT NOT NULL DEFAULT '',
    rules       JSONB,
    next_run    TIMESTAMPTZ NOT NULL,
    last_run    TIMESTAMPTZ,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_schedules_due ON schedules (next_run) WHERE is_active;

CREATE TABLE IF NOT EXISTS history (
    id              BIGSERIAL PRIMARY KEY,
    template_id     BIGINT NOT NULL REFERENCES templates(id),
    status          TEXT NOT NULL,
    generated_title TEXT NOT NULL DEFAULT '',
    content         TEXT NOT NULL DEFAULT '',
    error_message   TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_history_created_at ON history (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_history_status ON history (status);
CREATE INDEX IF NOT EXISTS idx_history_template ON history (template_id);

CREATE TABLE IF NOT EXISTS history_log (
    id         BIGSERIAL PRIMARY KEY,
    history_id BIGINT NOT NULL REFERENCES history(id) ON DELETE CASCADE,
    entry_type TEXT NOT NULL,
    kind       TEXT NOT NULL DEFAULT 'LOG',
    payload    JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_history_log_owner ON history_log (history_id, id);
`
