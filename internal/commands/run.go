package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/draftcue/draftcue/internal/alert"
	"github.com/draftcue/draftcue/internal/config"
	"github.com/draftcue/draftcue/internal/generate"
	"github.com/draftcue/draftcue/internal/scheduler"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run [schedule-id]",
		Short: "Execute a schedule immediately, leaving its cadence untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid schedule id %q", args[0])
			}
			return runSchedule(id, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Generation timeout")
	return cmd
}

func runSchedule(id int64, timeout time.Duration) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
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
	dispatcher, err := alert.NewDispatcher(cfg.Alerts, nil)
	if err != nil {
		return fmt.Errorf("creating alert dispatcher: %w", err)
	}

	sched := scheduler.New(st, gen, dispatcher.AlertFunc(), nil, scheduler.ConfigFrom(cfg.Scheduler))

	histID, err := sched.RunNow(ctx, id)
	if err != nil {
		if histID != 0 {
			color.Red("Run failed; see history record %d", histID)
		}
		return err
	}

	rec, err := st.History().GetByID(ctx, histID)
	if err != nil {
		return fmt.Errorf("fetching history record: %w", err)
	}
	color.Green("Completed: %s", rec.GeneratedTitle)
	fmt.Printf("history id: %d\n", rec.ID)
	return nil
}
