// Package alert implements alert dispatching to multiple sinks.
package alert

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/draftcue/draftcue/internal/metrics"
	"github.com/draftcue/draftcue/pkg/types"
)

// Sink is an alert destination.
type Sink interface {
	Send(alert types.Alert) error
	Name() string
}

// Dispatcher routes alerts to configured sinks.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher from alert configs.
func NewDispatcher(configs []types.AlertConfig, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	for _, cfg := range configs {
		sink, err := newSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s sink: %w", cfg.Type, err)
		}
		d.sinks = append(d.sinks, sink)
	}
	return d, nil
}

// Dispatch sends an alert to all configured sinks.
func (d *Dispatcher) Dispatch(alert types.Alert) {
	metrics.AlertsDispatched.Add(1)
	for _, sink := range d.sinks {
		if err := sink.Send(alert); err != nil {
			d.logger.Error("alert delivery failed", "sink", sink.Name(), "error", err)
		}
	}
}

// AlertFunc returns a function suitable for use as the scheduler's alert callback.
func (d *Dispatcher) AlertFunc() func(types.Alert) {
	return d.Dispatch
}

// Close releases sinks that hold resources, such as open files.
func (d *Dispatcher) Close() {
	for _, sink := range d.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				d.logger.Warn("closing alert sink", "sink", sink.Name(), "error", err)
			}
		}
	}
}

func newSink(cfg types.AlertConfig) (Sink, error) {
	switch cfg.Type {
	case types.AlertConsole:
		return NewConsoleSink(), nil
	case types.AlertWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook URL required")
		}
		return NewWebhookSink(cfg.URL), nil
	case types.AlertFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file path required")
		}
		return NewFileSink(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown alert type %q", cfg.Type)
	}
}
