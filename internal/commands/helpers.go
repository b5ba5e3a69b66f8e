// Package commands implements the CLI subcommands for the draftcue binary.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/internal/store/postgres"
	"github.com/draftcue/draftcue/pkg/types"
)

// openStore connects to the configured backend and applies migrations.
func openStore(ctx context.Context, cfg *types.ProjectConfig) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := postgres.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// scheduleFile is the YAML shape of one schedule definition file. A file may
// hold a single schedule or a list under "schedules".
type scheduleFile struct {
	Schedules []types.Schedule `yaml:"schedules"`
}

// loadScheduleDir loads all schedule YAML files from a directory. A missing
// directory is treated as empty.
func loadScheduleDir(dir string) ([]*types.Schedule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var schedules []*types.Schedule
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		var file scheduleFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if len(file.Schedules) == 0 {
			var single types.Schedule
			if err := yaml.Unmarshal(data, &single); err == nil && single.TemplateID != 0 {
				file.Schedules = append(file.Schedules, single)
			}
		}
		for i := range file.Schedules {
			schedules = append(schedules, &file.Schedules[i])
		}
	}
	return schedules, nil
}
