// Package config handles loading and validation of draftcue.yaml project
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/draftcue/draftcue/pkg/types"
)

// FileName is the project configuration file looked up in the project dir.
const FileName = "draftcue.yaml"

// Load reads and parses draftcue.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *types.ProjectConfig) error {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is postgres")
		}
	case "":
		return fmt.Errorf("store.driver is required")
	default:
		return fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}

	switch cfg.Generator.Type {
	case types.GeneratorAnthropic:
	case types.GeneratorHTTP:
		if cfg.Generator.URL == "" {
			return fmt.Errorf("generator.url is required when generator.type is http")
		}
	case types.GeneratorCommand:
		if cfg.Generator.Command == "" {
			return fmt.Errorf("generator.command is required when generator.type is command")
		}
	case "":
		return fmt.Errorf("generator.type is required")
	default:
		return fmt.Errorf("unknown generator.type %q", cfg.Generator.Type)
	}

	if cfg.Scheduler != nil && cfg.Scheduler.TickInterval != "" {
		if _, err := time.ParseDuration(cfg.Scheduler.TickInterval); err != nil {
			return fmt.Errorf("invalid scheduler.tickInterval %q: %w", cfg.Scheduler.TickInterval, err)
		}
	}

	for i, a := range cfg.Alerts {
		switch a.Type {
		case types.AlertConsole:
		case types.AlertWebhook:
			if a.URL == "" {
				return fmt.Errorf("alerts[%d].url is required for webhook alerts", i)
			}
		case types.AlertFile:
			if a.Path == "" {
				return fmt.Errorf("alerts[%d].path is required for file alerts", i)
			}
		default:
			return fmt.Errorf("alerts[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}
