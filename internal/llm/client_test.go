package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"llm-stock-prediction/internal/common/config"
	"llm-stock-prediction/internal/common/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type fakeModel struct {
	reply    *schema.Message
	err      error
	block    bool
	received []*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = input
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.reply, f.err
}

func newTestClient(t *testing.T, m ChatModel, timeout time.Duration) *Client {
	return NewClientWithModel(m, "test-model", timeout, logger.NewTestLogger(t))
}

// ==========================
// Complete
// ==========================

func TestClient_Complete_Success(t *testing.T) {
	fm := &fakeModel{reply: schema.AssistantMessage("```csv\na,b\n```", nil)}
	c := newTestClient(t, fm, time.Second)

	out, err := c.Complete(context.Background(), "Be terse {not a placeholder}", "symbol,price\nAAPL,1")
	require.NoError(t, err)
	assert.Equal(t, "```csv\na,b\n```", out)

	require.Len(t, fm.received, 2)
	assert.Equal(t, schema.System, fm.received[0].Role)
	assert.Equal(t, "Be terse {not a placeholder}", fm.received[0].Content)
	assert.Equal(t, schema.User, fm.received[1].Role)
	assert.Contains(t, fm.received[1].Content, "symbol,price\nAAPL,1")
}

func TestClient_Complete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		model   *fakeModel
		timeout time.Duration
		wantMsg string
	}{
		{
			name:    "provider error",
			model:   &fakeModel{err: errors.New("429 rate limited")},
			wantMsg: "429 rate limited",
		},
		{
			name:    "nil reply",
			model:   &fakeModel{},
			wantMsg: "no content",
		},
		{
			name:    "blank reply",
			model:   &fakeModel{reply: schema.AssistantMessage("  \n", nil)},
			wantMsg: "no content",
		},
		{
			name:    "deadline",
			model:   &fakeModel{block: true},
			timeout: 20 * time.Millisecond,
			wantMsg: "deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			_, err := newTestClient(t, tt.model, timeout).Complete(context.Background(), DefaultInstructions, "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLLMCallFailed)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	c, err := NewClient(context.Background(), config.LLMConfig{Model: "gpt-4o-mini", Timeout: 1000}, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.Model())

	_, err = c.Complete(context.Background(), DefaultInstructions, "a,b")
	assert.ErrorIs(t, err, ErrLLMCallFailed)
	assert.Contains(t, err.Error(), "no API key")
}

// ==========================
// OpenAI-compatible HTTP boundary
// ==========================

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1718000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

func TestNewClient_AgainstCompatibleServer(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("Explanations: steady growth"))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), config.LLMConfig{
		BaseURL:   srv.URL + "/v1",
		APIKey:    "sk-test",
		Model:     "gpt-4o-mini",
		MaxTokens: 256,
		Timeout:   5000,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "instructions here", "symbol,month,price")
	require.NoError(t, err)
	assert.Equal(t, "Explanations: steady growth", out)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "instructions here", got.Messages[0].Content)
}

func TestNewClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), config.LLMConfig{
		BaseURL: srv.URL + "/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		Timeout: 5000,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), DefaultInstructions, "a,b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMCallFailed)
}

func TestDefaultInstructions_MentionsOutputParts(t *testing.T) {
	assert.Contains(t, DefaultInstructions, "symbol,month,predicted_price")
	assert.Contains(t, DefaultInstructions, "<table>")
	assert.Contains(t, DefaultInstructions, "Explanations:")
}
