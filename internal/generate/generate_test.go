package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcue/draftcue/pkg/types"
)

func TestSplitTitle(t *testing.T) {
	title, content := SplitTitle("# Weekly Digest\n\nBody text here.")
	assert.Equal(t, "Weekly Digest", title)
	assert.Equal(t, "Body text here.", content)

	title, content = SplitTitle("single line only")
	assert.Equal(t, "single line only", title)
	assert.Equal(t, "", content)

	title, content = SplitTitle("   ")
	assert.Equal(t, "", title)
	assert.Equal(t, "", content)
}

func TestCommandGenerator(t *testing.T) {
	g := &CommandGenerator{
		Command: `printf '%s\n%s\n' "Title from $DRAFTCUE_TOPIC" "body"`,
		Timeout: 10 * time.Second,
	}

	res, err := g.Generate(context.Background(), Request{
		Template: types.Template{Name: "digest", Prompt: "write a digest"},
		Topic:    "golang",
	})
	require.NoError(t, err)
	assert.Equal(t, "Title from golang", res.Title)
	assert.Equal(t, "body", res.Content)
}

func TestCommandGenerator_Failure(t *testing.T) {
	g := &CommandGenerator{Command: "echo boom >&2; exit 3", Timeout: 10 * time.Second}
	_, err := g.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTPGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in httpGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "digest", in.TemplateName)
		assert.Equal(t, "golang", in.Topic)
		_ = json.NewEncoder(w).Encode(httpGenerateResponse{
			ID:      "ext-42",
			Title:   "A Title",
			Content: "generated body",
		})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(types.GeneratorConfig{Type: types.GeneratorHTTP, URL: srv.URL})
	res, err := g.Generate(context.Background(), Request{
		Template: types.Template{Name: "digest", Prompt: "p"},
		Topic:    "golang",
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-42", res.ID)
	assert.Equal(t, "A Title", res.Title)
	assert.Equal(t, "generated body", res.Content)
}

func TestHTTPGenerator_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(types.GeneratorConfig{Type: types.GeneratorHTTP, URL: srv.URL})
	_, err := g.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(types.GeneratorConfig{Type: "telepathy"})
	assert.Error(t, err)
}

func TestNew_CommandWrappedInBreaker(t *testing.T) {
	g, err := New(types.GeneratorConfig{Type: types.GeneratorCommand, Command: "true"})
	require.NoError(t, err)
	assert.Equal(t, "command", g.Name())
	assert.IsType(t, &Breaker{}, g)
}

func TestNewAnthropicGenerator_Defaults(t *testing.T) {
	g, err := NewAnthropicGenerator(types.GeneratorConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", g.Name())
	assert.Equal(t, defaultModel, g.model)
	assert.Equal(t, int64(defaultMaxTokens), g.maxTokens)
}

func TestNewAnthropicGenerator_RequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropicGenerator(types.GeneratorConfig{})
	assert.Error(t, err)
}
