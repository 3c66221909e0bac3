package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
)

func newGatewayServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GatewayClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewGatewayClient("test-key", WithBaseURL(srv.URL))
}

func TestGatewayClient_Complete(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"model": "google/gemini-2.5-flash",
			"choices": []map[string]any{
				{"message": map[string]any{"content": "{\"project_name\":\"X\"}"}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 34},
		})
	})

	resp, err := client.Complete(context.Background(), Request{
		System:   "you generate plugins",
		Messages: []Message{{Role: "user", Content: "make a heal command"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, DefaultModel, gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, `{"project_name":"X"}`, resp.Text)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 34, resp.OutputTokens)
}

func TestGatewayClient_RequestModelOverridesDefault(t *testing.T) {
	var gotReq chatRequest
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	})

	_, err := client.Complete(context.Background(), Request{
		Model:    "google/gemini-2.5-pro",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.5-pro", gotReq.Model)
}

func TestGatewayClient_RateLimitIsRetryable(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrRateLimit)
	assert.True(t, ferrors.IsRetryable(err))
}

func TestGatewayClient_PaymentRequiredIsPermanent(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "insufficient credits"},
		})
	})

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrPaymentRequired)
	assert.False(t, ferrors.IsRetryable(err))

	var apiErr *ferrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "insufficient credits", apiErr.Message)
}

func TestGatewayClient_EmptyChoices(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorContains(t, err, "no choices")
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  - id: google/gemini-2.5-flash
    name: Gemini 2.5 Flash
    default: true
  - id: openai/gpt-5-mini
    name: GPT-5 Mini
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, c.Models, 2)
	assert.Equal(t, "google/gemini-2.5-flash", c.DefaultModelID())
	assert.True(t, c.Contains("openai/gpt-5-mini"))
	assert.False(t, c.Contains("nope"))
}

func TestLoadCatalog_ExpandsEnvVars(t *testing.T) {
	t.Setenv("FORGE_DEFAULT_MODEL", "google/gemini-2.5-pro")

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  - id: ${FORGE_DEFAULT_MODEL}
    name: Deployment default
    default: true
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.5-pro", c.DefaultModelID())
	assert.True(t, c.Contains("google/gemini-2.5-pro"))
}

func TestLoadCatalog_EmptyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: []\n"), 0o644))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, DefaultModel, c.DefaultModelID())
}
