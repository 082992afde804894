package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL points at a local OpenAI-compatible server
	DefaultBaseURL = "http://localhost:11434/v1"
	// DefaultModel is the model requested when none is configured
	DefaultModel = "deepseek-r1:1.5b"
	// DefaultTimeout bounds a single completion call
	DefaultTimeout = 60 * time.Second

	// maxErrorBody caps how much of a failed response is kept in the error
	maxErrorBody = 2048
)

// Provider produces chat completions
type Provider interface {
	CreateChatCompletion(ctx context.Context, req Request) (*Response, error)
}

// Message is a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is an OpenAI-compatible chat completion request
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Choice is one completion alternative
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Response is an OpenAI-compatible chat completion response
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Text joins the content of every choice with newlines
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Choices))
	for _, c := range r.Choices {
		parts = append(parts, c.Message.Content)
	}
	return strings.Join(parts, "\n")
}

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat completion failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("chat completion failed (status %d): %s", e.StatusCode, e.Body)
}

// ChatClient calls {BaseURL}/chat/completions with a bearer key
type ChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client

	timeout time.Duration
}

// ClientOption configures a ChatClient
type ClientOption func(*ChatClient)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ChatClient) {
		c.Client = client
	}
}

// WithTimeout sets the request timeout. It applies to a client given with
// WithHTTPClient as well, regardless of option order.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ChatClient) {
		c.timeout = timeout
	}
}

// NewChatClient creates a chat client. Empty baseURL and model fall back to defaults.
func NewChatClient(baseURL, apiKey, model string, opts ...ClientOption) *ChatClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	c := &ChatClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.Client == nil {
		c.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if c.timeout > 0 {
		// Copy so a caller's client is never modified
		hc := *c.Client
		hc.Timeout = c.timeout
		c.Client = &hc
	}
	return c
}

// CreateChatCompletion sends the request once; there is no retry
func (c *ChatClient) CreateChatCompletion(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.Model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var chatResp Response
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &chatResp, nil
}
