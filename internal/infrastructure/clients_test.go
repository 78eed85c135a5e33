package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"buyerwatch/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	apiKey string
	body   map[string]any
}

func geminiServer(t *testing.T, status int, reply string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.apiKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&rec.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
			return
		}
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": reply}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestGeminiClient_GenerateResponse(t *testing.T) {
	srv, rec := geminiServer(t, http.StatusOK, "The slab is 70% done.")

	client, err := NewAIClient(context.Background(), entities.AnswerConfig{
		APIKey:          "test-key",
		Provider:        entities.ProviderGemini,
		BaseURL:         srv.URL,
		Temperature:     0.2,
		TopK:            40,
		TopP:            0.9,
		MaxOutputTokens: 256,
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)

	text, err := client.GenerateResponse(context.Background(), "What is the status?")
	require.NoError(t, err)
	assert.Equal(t, "The slab is 70% done.", text)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.True(t, strings.HasSuffix(rec.path, "/models/"+DefaultGeminiModel+":generateContent"), rec.path)
	assert.Equal(t, "test-key", rec.apiKey)

	contents, ok := rec.body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
	assert.Contains(t, mustJSON(t, contents[0]), "What is the status?")
	assert.Contains(t, mustJSON(t, rec.body["generationConfig"]), `"maxOutputTokens":256`)
}

func TestGeminiClient_ServerError(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusInternalServerError, "")

	client, err := NewGeminiClient(context.Background(), entities.AnswerConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "hello")
	assert.Error(t, err)
}

func TestGeminiClient_EmptyCandidate(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusOK, "")

	client, err := NewGeminiClient(context.Background(), entities.AnswerConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "hello")
	assert.ErrorIs(t, err, errEmptyCompletion)
}

func TestOpenAIClient_GenerateResponse(t *testing.T) {
	var (
		auth string
		path string
		req  map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Handover is September 2025."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewAIClient(context.Background(), entities.AnswerConfig{
		APIKey:          "test-key",
		Provider:        "OpenAI",
		BaseURL:         srv.URL + "/v1",
		Temperature:     0.3,
		MaxOutputTokens: 128,
	})
	require.NoError(t, err)

	text, err := client.GenerateResponse(context.Background(), "When is handover?")
	require.NoError(t, err)
	assert.Equal(t, "Handover is September 2025.", text)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, DefaultOpenAIModel, req["model"])
	assert.EqualValues(t, 128, req["max_tokens"])
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(entities.AnswerConfig{APIKey: "bad", BaseURL: srv.URL + "/v1"})
	_, err := client.GenerateResponse(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestNewAIClient_UnknownProvider(t *testing.T) {
	_, err := NewAIClient(context.Background(), entities.AnswerConfig{APIKey: "k", Provider: "llama"})
	assert.Error(t, err)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
