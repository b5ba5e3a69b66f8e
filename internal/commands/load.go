package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/draftcue/draftcue/internal/config"
	"github.com/draftcue/draftcue/internal/generate"
	"github.com/draftcue/draftcue/internal/scheduler"
)

// NewLoadCmd creates the load command.
func NewLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [dir]",
		Short: "Bulk-load schedule definitions from a directory of YAML files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(args[0])
		},
	}
}

func runLoad(dir string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	schedules, err := loadScheduleDir(dir)
	if err != nil {
		return fmt.Errorf("loading schedules from %s: %w", dir, err)
	}
	if len(schedules) == 0 {
		fmt.Printf("No schedule files found in %s.\n", dir)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer st.Close()

	gen, err := generate.New(cfg.Generator)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	sched := scheduler.New(st, gen, nil, nil, scheduler.ConfigFrom(cfg.Scheduler))

	n, err := sched.SaveScheduleBulk(ctx, schedules)
	if err != nil {
		return fmt.Errorf("saving schedules: %w", err)
	}
	color.Green("Loaded %d schedule(s) from %s", n, dir)
	for _, s := range schedules {
		fmt.Printf("  #%d template=%d frequency=%s next=%s\n",
			s.ID, s.TemplateID, s.Frequency, s.NextRun.Format(time.RFC3339))
	}
	return nil
}
