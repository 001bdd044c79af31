// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Configuration constants for the OpenRouter API.
const (
	// DefaultOpenRouterURL is the base URL for OpenRouter API.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 120 * time.Second

	// DefaultTemperature is the sampling temperature sent with every request.
	DefaultTemperature = 0.7

	// DefaultMaxTokens caps the length of a reply.
	DefaultMaxTokens = 2000

	// DefaultSiteURL and DefaultSiteName identify the app to OpenRouter.
	DefaultSiteURL  = "https://github.com/jeranaias/liquidgpt"
	DefaultSiteName = "LiquidGPT"

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// NewHTTPClient returns a client sharing the pooled transport with its own
// request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	hc := *sharedHTTPClient
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &hc
}

// ChatMessage is one entry of the history sent to the endpoint.
type ChatMessage struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// ChatRequest is the body posted to the chat completions endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatResponse is the subset of the completion response that is read.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the first choice's content.
func (r *ChatResponse) content() (string, bool) {
	if len(r.Choices) == 0 || r.Choices[0].Message.Content == nil {
		return "", false
	}
	return *r.Choices[0].Message.Content, true
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// =============================================================================
// OPENROUTER CLIENT
// =============================================================================

// OpenRouterClient sends chat completions to OpenRouter.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	siteURL    string
	siteName   string
	pacer      *Pacer
	logger     *zap.Logger
}

// NewOpenRouterClient creates a client with the given API key. An empty key
// still yields a client; Complete then fails with ErrNotConfigured.
func NewOpenRouterClient(apiKey string) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultOpenRouterURL,
		httpClient: sharedHTTPClient,
		siteURL:    DefaultSiteURL,
		siteName:   DefaultSiteName,
		logger:     zap.NewNop(),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *OpenRouterClient) WithBaseURL(url string) *OpenRouterClient {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithTimeout sets the request timeout on a private copy of the HTTP client.
func (c *OpenRouterClient) WithTimeout(timeout time.Duration) *OpenRouterClient {
	hc := *c.httpClient
	hc.Timeout = timeout
	c.httpClient = &hc
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *OpenRouterClient) WithHTTPClient(hc *http.Client) *OpenRouterClient {
	c.httpClient = hc
	return c
}

// WithSiteURL sets the HTTP-Referer header value.
func (c *OpenRouterClient) WithSiteURL(url string) *OpenRouterClient {
	c.siteURL = url
	return c
}

// WithSiteName sets the X-Title header value.
func (c *OpenRouterClient) WithSiteName(name string) *OpenRouterClient {
	c.siteName = name
	return c
}

// WithPacer spaces requests out. A nil pacer disables pacing.
func (c *OpenRouterClient) WithPacer(p *Pacer) *OpenRouterClient {
	c.pacer = p
	return c
}

// WithLogger sets the logger.
func (c *OpenRouterClient) WithLogger(logger *zap.Logger) *OpenRouterClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *OpenRouterClient) IsConfigured() bool {
	return c.apiKey != ""
}

// BaseURL returns the API base URL.
func (c *OpenRouterClient) BaseURL() string {
	return c.baseURL
}

// APIKeyMasked returns a masked version of the API key for display.
// SECURITY: Never exposes API key fragments - use fingerprint instead.
func (c *OpenRouterClient) APIKeyMasked() string {
	return MaskKey(c.apiKey)
}

// MaskKey renders key as its length and fingerprint.
func MaskKey(key string) string {
	if key == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(key), KeyFingerprint(key))
}

// KeyFingerprint returns the first 8 hex chars of the key's SHA-256.
func KeyFingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete posts the full history and returns the assistant reply. It
// makes exactly one attempt.
func (c *OpenRouterClient) Complete(ctx context.Context, messages []ChatMessage, model string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return "", err
	}

	reqBody := ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Clear Authorization header immediately after request to prevent logging
	req.Header.Del("Authorization")

	if err != nil {
		c.logger.Warn("completion request failed",
			zap.String("model", model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("completion response",
		zap.String("model", model),
		zap.Int("status", resp.StatusCode),
		zap.Int("messages", len(messages)),
		zap.Duration("duration", time.Since(start)),
		zap.String("key", KeyFingerprint(c.apiKey)))

	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", handleErrorResponse(resp, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	content, ok := chatResp.content()
	if !ok {
		return "", fmt.Errorf("%w: no choices in response", ErrUnexpectedResponse)
	}
	return content, nil
}

// setHeaders sets the required headers for OpenRouter API requests.
func (c *OpenRouterClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrNetworkUnreachable, err)
	}

	// Check if we hit the limit (response was truncated)
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeded maximum size of %d bytes", ErrUnexpectedResponse, MaxResponseSize)
	}

	return body, nil
}

// handleErrorResponse converts a non-2xx response into an *APIError.
func handleErrorResponse(resp *http.Response, body []byte) error {
	var apiErr apiErrorResponse
	var code string
	var message string
	if err := json.Unmarshal(body, &apiErr); err == nil {
		message = apiErr.Error.Message
		code = strings.Trim(string(apiErr.Error.Code), `"`)
	}
	return newAPIError(resp.StatusCode, resp.Status, code, message)
}
