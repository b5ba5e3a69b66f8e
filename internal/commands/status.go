package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/draftcue/draftcue/internal/config"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var showHistory int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show schedules and recent generation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(showHistory)
		},
	}

	cmd.Flags().IntVar(&showHistory, "history", 10, "How many recent history rows to show")
	return cmd
}

func runStatus(historyRows int) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer st.Close()

	if err := showSchedules(ctx, st); err != nil {
		return err
	}
	return showRecentHistory(ctx, st, historyRows)
}

func showSchedules(ctx context.Context, st store.Store) error {
	schedules, err := st.Schedules().List(ctx)
	if err != nil {
		return fmt.Errorf("listing schedules: %w", err)
	}

	bold := color.New(color.Bold)
	_, _ = bold.Println("Schedules:")
	if len(schedules) == 0 {
		fmt.Println("  (none)")
		return nil
	}

	now := time.Now()
	for _, s := range schedules {
		state := color.GreenString("active")
		if !s.Active {
			state = color.New(color.Faint).Sprint("inactive")
		}
		due := s.NextRun.Format(time.RFC3339)
		if s.Active && !s.NextRun.After(now) {
			due = color.YellowString("%s (due)", due)
		}
		fmt.Printf("  #%-4d template=%-4d %-10s %-8s next=%s", s.ID, s.TemplateID, s.Frequency, state, due)
		if s.Topic != "" {
			fmt.Printf("  topic=%q", s.Topic)
		}
		fmt.Println()
	}
	return nil
}

func showRecentHistory(ctx context.Context, st store.Store, rows int) error {
	if rows <= 0 {
		return nil
	}
	page, err := st.History().GetHistory(ctx, types.HistoryFilter{Page: 1, PerPage: rows})
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	bold := color.New(color.Bold)
	_, _ = bold.Printf("\nRecent history (%d of %d):\n", len(page.Items), page.Total)
	if len(page.Items) == 0 {
		fmt.Println("  (none)")
		return nil
	}

	for _, rec := range page.Items {
		var status string
		switch rec.Status {
		case types.HistoryCompleted:
			status = color.GreenString("%-10s", rec.Status)
		case types.HistoryFailed:
			status = color.RedString("%-10s", rec.Status)
		default:
			status = color.YellowString("%-10s", rec.Status)
		}
		title := rec.GeneratedTitle
		if title == "" && rec.ErrorMessage != "" {
			title = rec.ErrorMessage
		}
		fmt.Printf("  #%-5d %s %-20s %s  %s\n",
			rec.ID, status, rec.TemplateName, rec.CreatedAt.Format("2006-01-02 15:04"), title)
	}
	return nil
}
