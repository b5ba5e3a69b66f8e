package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcue/draftcue/pkg/types"
)

const storeHeader = "store:\n  driver: postgres\n  dsn: postgres://localhost/draftcue\n"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestLoad_Valid(t *testing.T) {
	dir := writeConfig(t, `
store:
  driver: postgres
  dsn: postgres://localhost/draftcue
generator:
  type: command
  command: "./generate.sh"
scheduler:
  enabled: true
  tickInterval: 30s
  dueLimit: 10
server:
  addr: ":8080"
alerts:
  - type: console
  - type: webhook
    url: https://hooks.example.com/draftcue
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, types.GeneratorCommand, cfg.Generator.Type)
	require.NotNil(t, cfg.Scheduler)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "30s", cfg.Scheduler.TickInterval)
	assert.Equal(t, 10, cfg.Scheduler.DueLimit)
	require.Len(t, cfg.Alerts, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing driver", "generator:\n  type: anthropic\n"},
		{"postgres without dsn", "store:\n  driver: postgres\ngenerator:\n  type: anthropic\n"},
		{"unknown driver", "store:\n  driver: sqlite\ngenerator:\n  type: anthropic\n"},
		{"missing generator", storeHeader},
		{"http without url", storeHeader + "generator:\n  type: http\n"},
		{"command without command", storeHeader + "generator:\n  type: command\n"},
		{"bad tick interval", storeHeader + "generator:\n  type: anthropic\nscheduler:\n  tickInterval: soon\n"},
		{"webhook without url", storeHeader + "generator:\n  type: anthropic\nalerts:\n  - type: webhook\n"},
		{"unknown alert type", storeHeader + "generator:\n  type: anthropic\nalerts:\n  - type: pager\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}
