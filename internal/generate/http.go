package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/draftcue/draftcue/pkg/types"
)

// HTTPGenerator delegates generation to an external HTTP service.
type HTTPGenerator struct {
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

// NewHTTPGenerator creates a generator backed by an HTTP endpoint.
func NewHTTPGenerator(cfg types.GeneratorConfig) *HTTPGenerator {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	return &HTTPGenerator{
		url:     cfg.URL,
		method:  method,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeoutFor(cfg)},
	}
}

// Name returns the backend identifier.
func (g *HTTPGenerator) Name() string { return "http" }

type httpGenerateRequest struct {
	TemplateName string `json:"template_name"`
	Prompt       string `json:"prompt"`
	Topic        string `json:"topic"`
}

type httpGenerateResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Generate POSTs the template prompt and topic and expects a JSON document
// with id, title, and content fields.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(httpGenerateRequest{
		TemplateName: req.Template.Name,
		Prompt:       req.Template.Prompt,
		Topic:        req.Topic,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, g.method, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building generator request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range g.headers {
		// Header values may reference environment variables for secrets.
		httpReq.Header.Set(k, os.ExpandEnv(v))
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generator request failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generator returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var out httpGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding generator response: %w", err)
	}
	if out.Content == "" {
		return nil, fmt.Errorf("generator response has no content")
	}
	if out.Title == "" {
		out.Title, out.Content = SplitTitle(out.Content)
		if out.Content == "" {
			out.Content = out.Title
		}
	}
	return &Result{ID: out.ID, Title: out.Title, Content: out.Content}, nil
}
