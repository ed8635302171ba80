package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

func TestNewClient_MissingKeyIsConfigurationError(t *testing.T) {
	t.Setenv("DOCINTEL_TEST_CHAT_KEY", "")

	_, err := NewClient(Config{APIKeyEnv: "DOCINTEL_TEST_CHAT_KEY"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "DOCINTEL_TEST_CHAT_KEY")
}

func TestNewClient_JoinsCompletionsPath(t *testing.T) {
	t.Setenv("DOCINTEL_TEST_CHAT_KEY", "sk-test")

	c, err := NewClient(Config{APIKeyEnv: "DOCINTEL_TEST_CHAT_KEY", BaseURL: "http://localhost:9999/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/v1/chat/completions", c.url)
}

func TestComplete_SendsPromptsAndReturnsContent(t *testing.T) {
	t.Setenv("DOCINTEL_TEST_CHAT_KEY", "sk-test")

	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" The answer. "}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKeyEnv: "DOCINTEL_TEST_CHAT_KEY", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "The answer.", text)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system prompt", got.Messages[0].Content)
	assert.Equal(t, "user prompt", got.Messages[1].Content)
	assert.Zero(t, got.Temperature)
}

func TestComplete_ClientErrorIsExternalService(t *testing.T) {
	t.Setenv("DOCINTEL_TEST_CHAT_KEY", "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKeyEnv: "DOCINTEL_TEST_CHAT_KEY", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)
}
