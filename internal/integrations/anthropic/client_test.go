package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

// ---------------------------------------------------------------------------
// messagesURL helper
// ---------------------------------------------------------------------------

func TestMessagesURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.anthropic.com", "https://api.anthropic.com/v1/messages"},
		{"https://api.anthropic.com/", "https://api.anthropic.com/v1/messages"},
		{"https://proxy.example.com/v1", "https://proxy.example.com/v1/messages"},
		{"http://localhost:8080", "http://localhost:8080/v1/messages"},
		{"", "https://api.anthropic.com/v1/messages"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, messagesURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_NilKeySource(t *testing.T) {
	_, err := NewClient(nil)
	require.ErrorContains(t, err, "nil")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"))
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
	require.Equal(t, defaultVersion, c.version)
	require.NotNil(t, c.httpClient)
}

// ---------------------------------------------------------------------------
// Client.Complete
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		StaticKey("sk-test"),
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func userRequest(text string) domain.CompletionRequest {
	return domain.CompletionRequest{
		Model:     "claude-mock",
		MaxTokens: 300,
		System:    "You are a helpful assistant.",
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: text}},
	}
}

func TestClient_Complete_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var got messagesRequest
		require.NoError(t, json.Unmarshal(raw, &got))
		require.Equal(t, "claude-mock", got.Model)
		require.Equal(t, 300, got.MaxTokens)
		require.Equal(t, "You are a helpful assistant.", got.System)
		require.Equal(t, []domain.ChatMessage{{Role: "user", Content: "hi"}}, got.Messages)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "Hello from mock"}],
			"stop_reason": "end_turn"
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	require.Equal(t, "Hello from mock", out.Text)
	require.Equal(t, "end_turn", out.StopReason)
	require.Equal(t, domain.ShapeContentBlocks, out.Shape)
	require.Contains(t, string(out.Raw), `"msg_01"`)
}

func TestClient_Complete_ProviderErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), userRequest("hi"))
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
	require.Equal(t, "rate_limit_error", statusErr.Type)
	require.Equal(t, "slow down", statusErr.Message)
	require.Contains(t, err.Error(), "429")
}

func TestClient_Complete_Non200PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), userRequest("hi"))
	require.ErrorContains(t, err, "unexpected status 500")
	require.ErrorContains(t, err, "upstream exploded")
}

func TestClient_Complete_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), userRequest("hi"))
	require.ErrorContains(t, err, "decode response")
	require.NotErrorIs(t, err, domain.ErrUnrecognizedReply)
}

func TestClient_Complete_UnrecognizedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"msg_01","output":{"words":"hi"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), userRequest("hi"))
	require.ErrorIs(t, err, domain.ErrUnrecognizedReply)
}

func TestClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"text":"late"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)
}

func TestClient_Complete_ConnectionRefused(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"), WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)
	c.httpClient = &http.Client{Timeout: 100 * time.Millisecond}

	_, err = c.Complete(context.Background(), userRequest("hi"))
	require.ErrorContains(t, err, "request failed")
}

func TestClient_Complete_ValidatesRequest(t *testing.T) {
	c, err := NewClient(StaticKey("sk-test"))
	require.NoError(t, err)

	req := userRequest("hi")
	req.Model = ""
	_, err = c.Complete(context.Background(), req)
	require.ErrorContains(t, err, "model")

	req = userRequest("hi")
	req.MaxTokens = 0
	_, err = c.Complete(context.Background(), req)
	require.ErrorContains(t, err, "max tokens")

	req = userRequest("hi")
	req.Messages = nil
	_, err = c.Complete(context.Background(), req)
	require.ErrorContains(t, err, "message")
}

func TestClient_Complete_KeyError(t *testing.T) {
	c, err := NewClient(StaticKey(" "))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), userRequest("hi"))
	require.ErrorContains(t, err, "API key is empty")
}

func TestHTTPStatusError_Message(t *testing.T) {
	err := error(&HTTPStatusError{StatusCode: 529, URL: "u", Type: "overloaded_error", Message: "Overloaded"})
	require.Equal(t, "anthropic: unexpected status 529 from u: overloaded_error: Overloaded", err.Error())

	var coder interface{ HTTPStatusCode() int }
	require.True(t, errors.As(err, &coder))
	require.Equal(t, 529, coder.HTTPStatusCode())
}
