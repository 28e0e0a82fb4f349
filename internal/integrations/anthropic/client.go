package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultVersion = "2023-06-01"
	defaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
	maxErrorBytes    = 4096
)

// messagesRequest is the request shape for the Messages endpoint.
type messagesRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	System    string               `json:"system,omitempty"`
	Messages  []domain.ChatMessage `json:"messages"`
}

// errorEnvelope is the body Anthropic sends with non-2xx statuses.
type errorEnvelope struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	// Type and Message come from the provider error envelope when present.
	Type    string
	Message string
	Body    string
}

func (e *HTTPStatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("anthropic: unexpected status %d from %s: %s: %s", e.StatusCode, e.URL, e.Type, e.Message)
	}
	return fmt.Sprintf("anthropic: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the Anthropic Messages API. It holds no per-request state and
// is safe for concurrent use.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
	keys       KeySource
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithVersion overrides the anthropic-version header.
func WithVersion(version string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(version); v != "" {
			c.version = v
		}
	}
}

// NewClient creates a Client that authenticates with keys. The key is not
// resolved until the first call to Complete.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("anthropic: key source must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		version:    defaultVersion,
		httpClient: &http.Client{Timeout: defaultTimeout},
		keys:       keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func messagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/messages"
	}
	return base + "/v1/messages"
}

// Complete sends one Messages request and decodes the reply.
func (c *Client) Complete(ctx context.Context, in domain.CompletionRequest) (domain.Completion, error) {
	if strings.TrimSpace(in.Model) == "" {
		return domain.Completion{}, errors.New("anthropic: model must not be empty")
	}
	if in.MaxTokens <= 0 {
		return domain.Completion{}, errors.New("anthropic: max tokens must be positive")
	}
	if len(in.Messages) == 0 {
		return domain.Completion{}, errors.New("anthropic: at least one message is required")
	}

	apiKey, err := c.keys.APIKey(ctx)
	if err != nil {
		return domain.Completion{}, err
	}

	body, err := json.Marshal(messagesRequest{
		Model:     in.Model,
		MaxTokens: in.MaxTokens,
		System:    in.System,
		Messages:  in.Messages,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	url := messagesURL(c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", c.version)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("anthropic: request failed: %w", err)
	}

	return DecodeReply(raw)
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBytes))
		statusErr := &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
		var env errorEnvelope
		if json.Unmarshal(buf, &env) == nil {
			statusErr.Type = env.Error.Type
			statusErr.Message = env.Error.Message
		}
		return nil, statusErr
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
