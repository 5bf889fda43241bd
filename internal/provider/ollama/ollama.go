// Package ollama implements the generative text provider on the Ollama
// generate API. It supplies ratings and summaries from the model's world
// knowledge, not live lookup, so responses are freeform text that callers
// must parse defensively.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shelfscan/bookdex/internal/provider"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2"
)

// ProviderKey is the rate-limiter key for this adapter.
const ProviderKey = "ollama"

// Compile-time check that Client implements provider.Generative.
var _ provider.Generative = (*Client)(nil)

// Client is the Ollama generative adapter.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	gate       provider.Gate
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithModel sets the model name.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an Ollama adapter gated on the given limiter.
func New(gate provider.Gate, opts ...Option) *Client {
	if gate == nil {
		gate = provider.OpenGate()
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		gate:       gate,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements provider.Generative.
func (c *Client) Name() string { return ProviderKey }

// Rate implements provider.Generative.
func (c *Client) Rate(ctx context.Context, title, author string) (string, error) {
	prompt := fmt.Sprintf(
		"Rate the book %q by %s on a scale of 1.0 to 5.0 based on its general critical and reader reception. Respond with only the number.",
		title, author)
	return c.generate(ctx, prompt)
}

// Summarize implements provider.Generative.
func (c *Client) Summarize(ctx context.Context, title, author string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a 3-4 sentence spoiler-free summary of the book %q by %s. Respond with only the summary.",
		title, author)
	return c.generate(ctx, prompt)
}

// generateRequest is the Ollama generate API request.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama generate API response.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if !c.gate.Allow(ProviderKey) {
		c.logger.Debug("rate limited, skipping", zap.String("provider", ProviderKey))
		return "", nil
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("ollama: decode: %w", err)
	}
	return strings.TrimSpace(gr.Response), nil
}
