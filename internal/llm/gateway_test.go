package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSettings map[string]string

func (s staticSettings) All(context.Context) (map[string]string, error) {
	return s, nil
}

func TestProviderResolutionRequiresKeys(t *testing.T) {
	gw := NewGateway(staticSettings{}, time.Second)
	ctx := context.Background()

	for _, name := range []string{"openai", "claude", "gemini"} {
		_, err := gw.Provider(ctx, name)
		require.Error(t, err, name)
		assert.True(t, IsNotConfigured(err), name)
	}

	// Ollama is local and needs no credentials.
	p, err := gw.Provider(ctx, "ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestProviderResolutionWithKeys(t *testing.T) {
	gw := NewGateway(staticSettings{
		"openai_api_key": "sk-test",
		"claude_api_key": "ca-test",
		"gemini_api_key": "ga-test",
	}, time.Second)
	ctx := context.Background()

	for _, name := range []string{"openai", "claude", "gemini", "ollama"} {
		p, err := gw.Provider(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestProviderUnknownName(t *testing.T) {
	gw := NewGateway(staticSettings{}, time.Second)

	_, err := gw.Provider(context.Background(), "grok")
	require.Error(t, err)
	assert.False(t, IsNotConfigured(err))
}

func TestNotConfiguredErrorMessage(t *testing.T) {
	err := &NotConfiguredError{Provider: "OpenAI"}
	assert.Equal(t, "OpenAI API key not configured", err.Error())
}

func TestOllamaGenerate(t *testing.T) {
	var gotPath string
	var gotBody ollamaGenerateReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"forty-two","done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama2")
	out, err := p.Generate(context.Background(), "meaning of life?", []string{"deep thought output"})

	require.NoError(t, err)
	assert.Equal(t, "forty-two", out)
	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, "llama2", gotBody.Model)
	assert.False(t, gotBody.Stream)
	assert.Contains(t, gotBody.Prompt, "deep thought output")
	assert.Contains(t, gotBody.Prompt, "meaning of life?")
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing")
	_, err := p.Generate(context.Background(), "q", nil)
	assert.Error(t, err)
}

func TestGatewayGenerateViaOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"hello","done":true}`))
	}))
	defer srv.Close()

	gw := NewGateway(staticSettings{"ollama_endpoint": srv.URL}, time.Second)
	out, err := gw.Generate(context.Background(), "ollama", "hi", nil)

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}
