package alert

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/draftcue/draftcue/pkg/types"
)

// ConsoleSink prints alerts to a writer, color-coded by severity.
type ConsoleSink struct {
	out io.Writer
}

// NewConsoleSink creates a sink writing to stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Send(a types.Alert) error {
	tag := consoleTag(a.Level)
	if a.ScheduleID != 0 {
		_, err := fmt.Fprintf(s.out, "%s schedule=%d %s\n", tag, a.ScheduleID, a.Message)
		return err
	}
	_, err := fmt.Fprintf(s.out, "%s %s\n", tag, a.Message)
	return err
}

func consoleTag(level types.AlertLevel) string {
	switch level {
	case types.AlertLevelError:
		return color.RedString("[ERROR]")
	case types.AlertLevelWarning:
		return color.YellowString("[WARN]")
	default:
		return color.CyanString("[INFO]")
	}
}
