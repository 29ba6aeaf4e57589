// Package llm adapts the OpenAI chat completion API to the core AIClient
// contract used by decomposition, location extraction, and synthesis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gridmind/gridmind/core"
)

// Client implements core.AIClient over the OpenAI API (or any
// API-compatible endpoint via BaseURL).
type Client struct {
	api      *openai.Client
	defaults core.AIConfig
	logger   core.Logger
}

// NewClient creates a client from the AI configuration.
func NewClient(cfg core.AIConfig, logger core.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: AI api_key", core.ErrMissingConfiguration)
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:      openai.NewClientWithConfig(apiCfg),
		defaults: cfg,
		logger:   logger,
	}, nil
}

// GenerateResponse sends one prompt and returns the first choice. Options
// override the configured defaults field by field.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	model := c.defaults.Model
	temperature := c.defaults.Temperature
	maxTokens := c.defaults.MaxTokens
	systemPrompt := ""

	if options != nil {
		if options.Model != "" {
			model = options.Model
		}
		if options.Temperature > 0 {
			temperature = options.Temperature
		}
		if options.MaxTokens > 0 {
			maxTokens = options.MaxTokens
		}
		systemPrompt = options.SystemPrompt
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", core.ErrRequestFailed)
	}

	c.logger.Debug("Completion returned", map[string]interface{}{
		"operation":    "generate_response",
		"model":        resp.Model,
		"total_tokens": resp.Usage.TotalTokens,
	})

	return &core.AIResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: core.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// classifyError maps API failures onto the core taxonomy so the retry
// predicate can tell transient from permanent.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return fmt.Errorf("%w: %v", core.ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", core.ErrRequestFailed, err)
		default:
			return err
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	return err
}
