package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Initialize a new draftcue project",
		Long:  "Creates project scaffolding: draftcue.yaml plus a starter schedule directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0])
		},
	}
}

func runInit(projectName string) error {
	bold := color.New(color.Bold)
	_, _ = bold.Printf("Initializing draftcue project: %s\n", projectName)

	if err := os.MkdirAll(filepath.Join(projectName, "schedules"), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	configPath := filepath.Join(projectName, "draftcue.yaml")
	configContent := `store:
  driver: postgres
  dsn: postgres://localhost:5432/draftcue?sslmode=disable
generator:
  type: anthropic
  model: claude-sonnet-4-20250514
  maxTokens: 4096
scheduler:
  enabled: true
  tickInterval: 60s
  dueLimit: 5
server:
  addr: ":3000"
alerts:
  - type: console
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	examplePath := filepath.Join(projectName, "schedules", "example.yaml")
	exampleContent := `# Example schedule definitions. Load with: draftcue load ./schedules
schedules:
  - templateId: 1
    frequency: daily
    topic: "weekly engineering digest"
    active: true
  - templateId: 1
    frequency: weekly
    active: true
    rules:
      mode: all
      conditions:
        - kind: time_between
          start: "08:00"
          end: "10:00"
        - kind: days_of_week
          days: [monday]
`
	if err := os.WriteFile(examplePath, []byte(exampleContent), 0o644); err != nil {
		return fmt.Errorf("writing example schedule: %w", err)
	}

	color.Green("Project created.")
	fmt.Println("Next steps:")
	fmt.Printf("  cd %s\n", projectName)
	fmt.Println("  # edit draftcue.yaml, set ANTHROPIC_API_KEY")
	fmt.Println("  draftcue serve")
	return nil
}
