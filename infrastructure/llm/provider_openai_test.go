package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// openAIChatResponse renders a minimal chat.completion body.
func openAIChatResponse(content string, prompt, cached, completion int) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":         prompt,
			"completion_tokens":     completion,
			"total_tokens":          prompt + completion,
			"prompt_tokens_details": map[string]any{"cached_tokens": cached},
		},
	}
}

func newOpenAITestServer(t *testing.T, handler func(t *testing.T, body map[string]any) (int, any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		status, resp := handler(t, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestOpenAIProvider(t *testing.T, url string) CoreLLM {
	t.Helper()
	p, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", Model: "gpt-4o", BaseURL: url, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return p
}

func TestOpenAIProvider_ImageRequest(t *testing.T) {
	server := newOpenAITestServer(t, func(t *testing.T, body map[string]any) (int, any) {
		assert.Equal(t, "gpt-4o", body["model"])
		assert.EqualValues(t, 800, body["max_tokens"])
		assert.InDelta(t, 0.2, body["temperature"], 1e-6)
		assert.InDelta(t, 0.95, body["top_p"], 1e-6)
		assert.Nil(t, body["response_format"])

		messages := body["messages"].([]any)
		require.Len(t, messages, 3)

		system := messages[0].(map[string]any)
		assert.Equal(t, "system", system["role"])
		assert.Equal(t, "Describe the fundus.", system["content"])

		user := messages[1].(map[string]any)
		assert.Equal(t, "user", user["role"])
		parts := user["content"].([]any)
		require.Len(t, parts, 1)
		part := parts[0].(map[string]any)
		assert.Equal(t, "image_url", part["type"])
		imageURL := part["image_url"].(map[string]any)
		assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", imageURL["url"])
		assert.Equal(t, "high", imageURL["detail"])

		assistant := messages[2].(map[string]any)
		assert.Equal(t, "assistant", assistant["role"])
		assert.Equal(t, "Exam type: retinografia", assistant["content"])

		return http.StatusOK, openAIChatResponse("Disco óptico de bordos nítidos.", 1000, 200, 100)
	})
	defer server.Close()

	temp, topP := 0.2, 0.95
	resp, err := newTestOpenAIProvider(t, server.URL).DoRequest(context.Background(), ports.ChatRequest{
		Messages: []ports.ChatMessage{
			{Role: ports.RoleSystem, Parts: []ports.ContentPart{ports.TextPart("Describe the fundus.")}},
			{Role: ports.RoleUser, Parts: []ports.ContentPart{ports.ImagePart(domain.InlineImageData{MIMEType: "image/png", Base64: "iVBORw0KGgo="})}},
			{Role: ports.RoleAssistant, Parts: []ports.ContentPart{ports.TextPart("Exam type: retinografia")}},
		},
		MaxTokens:   800,
		Temperature: &temp,
		TopP:        &topP,
	})
	require.NoError(t, err)

	assert.Equal(t, "Disco óptico de bordos nítidos.", resp.Text)
	assert.Equal(t, domain.TokenUsage{PromptTokens: 1000, CachedTokens: 200, CompletionTokens: 100}, resp.Usage)
}

func TestOpenAIProvider_JSONMode(t *testing.T) {
	server := newOpenAITestServer(t, func(t *testing.T, body map[string]any) (int, any) {
		format, ok := body["response_format"].(map[string]any)
		require.True(t, ok, "response_format should be set")
		assert.Equal(t, "json_object", format["type"])

		user := body["messages"].([]any)[1].(map[string]any)
		assert.Equal(t, "desc one\n\ndesc two", user["content"])
		return http.StatusOK, openAIChatResponse(`{"description":"ok","diagnosis":"normal"}`, 10, 0, 5)
	})
	defer server.Close()

	resp, err := newTestOpenAIProvider(t, server.URL).DoRequest(context.Background(), ports.ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []ports.ChatMessage{
			{Role: ports.RoleSystem, Parts: []ports.ContentPart{ports.TextPart("layout")}},
			{Role: ports.RoleUser, Parts: []ports.ContentPart{ports.TextPart("desc one\n\ndesc two")}},
		},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":"ok","diagnosis":"normal"}`, resp.Text)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantType: ErrorTypeAuthentication},
		{name: "rate limited", status: http.StatusTooManyRequests, wantType: ErrorTypeRateLimit, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, wantType: ErrorTypeBadRequest},
		{name: "server error", status: http.StatusInternalServerError, wantType: ErrorTypeServerError, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newOpenAITestServer(t, func(t *testing.T, _ map[string]any) (int, any) {
				return tt.status, map[string]any{"error": map[string]any{"message": "boom", "type": "test"}}
			})
			defer server.Close()

			p, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", Model: "gpt-4o", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = p.DoRequest(context.Background(), userRequest("x"))
			require.Error(t, err)

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	server := newOpenAITestServer(t, func(t *testing.T, _ map[string]any) (int, any) {
		resp := openAIChatResponse("", 1, 0, 0)
		resp["choices"] = []any{}
		return http.StatusOK, resp
	})
	defer server.Close()

	_, err := newTestOpenAIProvider(t, server.URL).DoRequest(context.Background(), userRequest("x"))
	assert.ErrorIs(t, err, ErrNoResponseChoice)
}

func TestOpenAIProvider_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer server.CloseClientConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestOpenAIProvider(t, server.URL).DoRequest(ctx, userRequest("x"))
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorTypeTimeout, pe.Type)
}

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p, err := newOpenAIProvider(ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, OpenAIDefaultModel, p.GetModel())

	p.SetModel("gpt-4.1")
	assert.Equal(t, "gpt-4.1", p.GetModel())

	_, err = newOpenAIProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}
