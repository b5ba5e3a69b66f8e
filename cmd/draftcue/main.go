package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/draftcue/draftcue/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "draftcue",
		Short: "Recurring content-generation scheduler",
		Long: `Draftcue runs recurring content-generation jobs against a template store.
Schedules advance through an optimistic claim on their next-run timestamp, so
multiple instances can share one database without double-running a job. Every
execution attempt is recorded as an auditable history record.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewLoadCmd(),
		commands.NewRunCmd(),
		commands.NewStatusCmd(),
		commands.NewServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
