// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultOpenAIURL is the base URL used when none is configured.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIClient sends completions to any OpenAI-compatible endpoint.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *openai.Client
	pacer   *Pacer
	logger  *zap.Logger
}

// OpenAIOptions configures an OpenAIClient.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Pacer      *Pacer
	Logger     *zap.Logger
}

// NewOpenAIClient creates a client. Zero option values fall back to the
// package defaults.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	key := strings.TrimSpace(opts.APIKey)
	cfg := openai.DefaultConfig(key)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	cfg.HTTPClient = sharedHTTPClient
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &OpenAIClient{
		apiKey:  key,
		baseURL: cfg.BaseURL,
		client:  openai.NewClientWithConfig(cfg),
		pacer:   opts.Pacer,
		logger:  opts.Logger,
	}
}

// IsConfigured returns true if the client has an API key configured.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// BaseURL returns the API base URL.
func (c *OpenAIClient) BaseURL() string {
	return c.baseURL
}

// Complete posts the full history and returns the assistant reply.
func (c *OpenAIClient) Complete(ctx context.Context, messages []ChatMessage, model string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("completion request failed",
			zap.String("model", model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", c.mapError(ctx, err)
	}

	c.logger.Debug("completion response",
		zap.String("model", model),
		zap.Int("messages", len(messages)),
		zap.Duration("duration", time.Since(start)))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUnexpectedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError translates go-openai errors into this package's errors.
func (c *OpenAIClient) mapError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return newAPIError(apiErr.HTTPStatusCode, "", code, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 200 && reqErr.HTTPStatusCode <= 299 {
			return fmt.Errorf("%w: %v", ErrUnexpectedResponse, reqErr.Err)
		}
		return newAPIError(reqErr.HTTPStatusCode, "", "", "")
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	return classifyTransportError(ctx, err)
}
