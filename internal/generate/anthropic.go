package generate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/draftcue/draftcue/pkg/types"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// AnthropicGenerator produces content with the Anthropic Messages API. The
// template prompt becomes the system prompt and the topic the user turn.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	temp      float64
}

// NewAnthropicGenerator creates an Anthropic-backed generator. The API key
// falls back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicGenerator(cfg types.GeneratorConfig) (*AnthropicGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic generator requires an API key")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicGenerator{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		temp:      cfg.Temp,
	}, nil
}

// Name returns the backend identifier.
func (g *AnthropicGenerator) Name() string { return "anthropic" }

// Generate sends one Messages API call and extracts the text blocks.
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	userPrompt := req.Topic
	if userPrompt == "" {
		userPrompt = "Write the document described by the system prompt."
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.Template.Prompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if g.temp > 0 {
		params.Temperature = anthropic.Float(g.temp)
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("anthropic response contained no text")
	}

	title, content := SplitTitle(text)
	if content == "" {
		content = title
	}
	return &Result{ID: msg.ID, Title: title, Content: content}, nil
}
