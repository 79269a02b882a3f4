// Package llm sends the user's data to an OpenAI-compatible chat model and
// returns the raw reply text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"llm-stock-prediction/internal/common/config"
	commonhttp "llm-stock-prediction/internal/common/http"
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/common/metrics"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrLLMCallFailed is the single failure kind of Complete. The wrapped text
// carries the provider or transport detail.
var ErrLLMCallFailed = errors.New("LLM call failed")

// Completer is what the prediction flow needs from a model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, data string) (string, error)
}

// ChatModel is the subset of eino's chat model used here.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

type Client struct {
	model     ChatModel
	modelName string
	timeout   time.Duration
	logger    logger.Logger
}

var _ Completer = (*Client)(nil)

// NewClient builds an eino OpenAI chat model from cfg. A missing API key is
// not an error here; every Complete call then fails with ErrLLMCallFailed.
func NewClient(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (*Client, error) {
	timeout := config.GetDuration(cfg.Timeout)
	c := &Client{
		modelName: cfg.Model,
		timeout:   timeout,
		logger:    log.WithFields(map[string]interface{}{"component": "llm", "model": cfg.Model}),
	}
	if cfg.APIKey == "" {
		c.logger.Warn("no LLM API key configured; predictions will fail", nil)
		return c, nil
	}

	maxTokens := cfg.MaxTokens
	modelCfg := &openai.ChatModelConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		MaxTokens:  &maxTokens,
		HTTPClient: commonhttp.NewClient(timeout, "llm-stock-prediction").HTTPClient(),
	}
	if cfg.Temperature > 0 {
		temperature := float32(cfg.Temperature)
		modelCfg.Temperature = &temperature
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	c.model = chatModel
	return c, nil
}

// NewClientWithModel wraps an existing chat model.
func NewClientWithModel(m ChatModel, modelName string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		model:     m,
		modelName: modelName,
		timeout:   timeout,
		logger:    log.WithFields(map[string]interface{}{"component": "llm", "model": modelName}),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.modelName
}

// Complete makes one synchronous call and returns the full reply text.
// Failures are never retried.
func (c *Client) Complete(ctx context.Context, systemPrompt, data string) (string, error) {
	if c.model == nil {
		return "", fmt.Errorf("%w: no API key configured", ErrLLMCallFailed)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages, err := chatTemplate.Format(ctx, map[string]any{
		"instructions": systemPrompt,
		"data":         data,
	})
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %v", ErrLLMCallFailed, err)
	}

	start := time.Now()
	reply, err := c.model.Generate(ctx, messages)
	elapsed := time.Since(start)

	status := "ok"
	defer func() {
		metrics.LLMCallDuration.WithLabelValues(c.modelName, status).Observe(elapsed.Seconds())
	}()

	if err != nil {
		status = "error"
		c.logger.Warn("chat completion failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": elapsed.Milliseconds(),
		})
		return "", fmt.Errorf("%w: %v", ErrLLMCallFailed, err)
	}
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		status = "empty"
		return "", fmt.Errorf("%w: model returned no content", ErrLLMCallFailed)
	}

	c.logger.Debug("chat completion finished", map[string]interface{}{
		"durationMs":    elapsed.Milliseconds(),
		"responseBytes": len(reply.Content),
	})
	return reply.Content, nil
}
