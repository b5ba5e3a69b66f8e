// Package generate implements the content-generation backends the scheduler
// invokes for due schedules. The scheduler treats a backend as an opaque
// callable: a result with an identifier on success, an error otherwise.
package generate

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/draftcue/draftcue/pkg/types"
)

const defaultTimeout = 60 * time.Second

// Request carries the resolved parameters for one generation call.
type Request struct {
	Template types.Template
	Topic    string
}

// Result is a successful generation outcome. ID is backend-assigned and
// opaque to the scheduler.
type Result struct {
	ID      string
	Title   string
	Content string
}

// Generator produces content for a schedule's template and topic.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
}

// New builds the configured backend, wrapped in a circuit breaker.
func New(cfg types.GeneratorConfig) (Generator, error) {
	var g Generator
	switch cfg.Type {
	case types.GeneratorAnthropic:
		ag, err := NewAnthropicGenerator(cfg)
		if err != nil {
			return nil, err
		}
		g = ag
	case types.GeneratorHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("http generator URL required")
		}
		g = NewHTTPGenerator(cfg)
	case types.GeneratorCommand:
		if cfg.Command == "" {
			return nil, fmt.Errorf("generator command is empty")
		}
		g = &CommandGenerator{Command: cfg.Command, Timeout: timeoutFor(cfg)}
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
	return WithBreaker(g, DefaultBreakerConfig()), nil
}

func timeoutFor(cfg types.GeneratorConfig) time.Duration {
	if cfg.Timeout > 0 {
		return time.Duration(cfg.Timeout) * time.Second
	}
	return defaultTimeout
}

// CommandGenerator shells out and treats stdout as the generated document.
type CommandGenerator struct {
	Command string
	Timeout time.Duration
}

// Name returns the backend identifier.
func (g *CommandGenerator) Name() string { return "command" }

// Generate runs the command with the template prompt and topic in its
// environment and parses stdout into title and content.
func (g *CommandGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", g.Command)
	cmd.Env = append(cmd.Environ(),
		"DRAFTCUE_TEMPLATE="+req.Template.Name,
		"DRAFTCUE_PROMPT="+req.Template.Prompt,
		"DRAFTCUE_TOPIC="+req.Topic,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("generator command failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("generator command failed: %w", err)
	}

	title, content := SplitTitle(stdout.String())
	if content == "" && title == "" {
		return nil, fmt.Errorf("generator command produced no output")
	}
	return &Result{Title: title, Content: content}, nil
}

// SplitTitle treats the first non-empty line of a generated document as its
// title and the remainder as the body.
func SplitTitle(doc string) (title, content string) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return "", ""
	}
	if idx := strings.IndexByte(doc, '\n'); idx >= 0 {
		title = strings.TrimSpace(strings.TrimPrefix(doc[:idx], "# "))
		content = strings.TrimSpace(doc[idx+1:])
		return title, content
	}
	return strings.TrimSpace(strings.TrimPrefix(doc, "# ")), ""
}
