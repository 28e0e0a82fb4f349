package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/integrations/anthropic"
)

type mockLLM struct {
	mu        sync.Mutex
	reply     domain.Completion
	err       error
	requests  []domain.CompletionRequest
	replyFunc func(domain.CompletionRequest) (domain.Completion, error)
}

func (m *mockLLM) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.replyFunc != nil {
		return m.replyFunc(req)
	}
	return m.reply, m.err
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func textReply(text string) domain.Completion {
	return domain.Completion{Text: text, StopReason: "end_turn", Shape: domain.ShapeContentBlocks, Raw: []byte(`{"content":[]}`)}
}

func newTestChatService(t *testing.T, llm LLMClient) *ChatService {
	t.Helper()
	svc, err := NewChatService(llm, ChatConfig{Model: "claude-test", MaxTokens: 150, MaxMessageLength: 50})
	require.NoError(t, err)
	return svc
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewChatService_ValidatesAndDefaults(t *testing.T) {
	_, err := NewChatService(nil, ChatConfig{})
	require.Error(t, err)

	svc, err := NewChatService(&mockLLM{}, ChatConfig{})
	require.NoError(t, err)
	require.Equal(t, DefaultModel, svc.cfg.Model)
	require.Equal(t, DefaultMaxTokens, svc.cfg.MaxTokens)
	require.Equal(t, DefaultMaxMessageLength, svc.cfg.MaxMessageLength)
}

func TestComplete_HappyPath(t *testing.T) {
	llm := &mockLLM{reply: textReply("Hi there")}
	svc := newTestChatService(t, llm)

	out, err := svc.Complete(context.Background(), ChatInput{Message: "  hello  ", SystemPrompt: "Be brief."})
	require.NoError(t, err)
	require.Equal(t, "Hi there", out.Response)
	require.Equal(t, "end_turn", out.StopReason)
	require.False(t, out.Degraded)

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	require.Equal(t, "claude-test", req.Model)
	require.Equal(t, 150, req.MaxTokens)
	require.Equal(t, "Be brief.", req.System)
	require.Equal(t, []domain.ChatMessage{{Role: "user", Content: "hello"}}, req.Messages)
}

func TestComplete_DefaultSystemPrompt(t *testing.T) {
	for _, sp := range []string{"", "   "} {
		llm := &mockLLM{reply: textReply("ok")}
		svc := newTestChatService(t, llm)

		_, err := svc.Complete(context.Background(), ChatInput{Message: "hello", SystemPrompt: sp})
		require.NoError(t, err)
		require.Equal(t, "You are a helpful assistant.", llm.requests[0].System)
	}
}

func TestComplete_ValidationErrors(t *testing.T) {
	llm := &mockLLM{reply: textReply("ok")}
	svc := newTestChatService(t, llm)

	_, err := svc.Complete(context.Background(), ChatInput{})
	expectError(t, err, ErrorInvalidInput, "message_required")

	_, err = svc.Complete(context.Background(), ChatInput{Message: " \n\t"})
	expectError(t, err, ErrorInvalidInput, "message_required")

	_, err = svc.Complete(context.Background(), ChatInput{Message: strings.Repeat("é", 51)})
	expectError(t, err, ErrorInvalidInput, "message_too_long")

	require.Zero(t, llm.callCount())
}

func TestComplete_MessageRequiredHasHumanMessage(t *testing.T) {
	svc := newTestChatService(t, &mockLLM{})
	_, err := svc.Complete(context.Background(), ChatInput{})
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, "Message is required", usecaseErr.Message())
}

func TestComplete_UpstreamErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   ErrorCode
		reason string
	}{
		{"rate limited", &anthropic.HTTPStatusError{StatusCode: http.StatusTooManyRequests}, ErrorRateLimited, "provider_rate_limited"},
		{"server error", &anthropic.HTTPStatusError{StatusCode: http.StatusInternalServerError}, ErrorUpstream, "provider_error"},
		{"overloaded", &anthropic.HTTPStatusError{StatusCode: 529}, ErrorUpstream, "provider_error"},
		{"network", errors.New("dial tcp: connection refused"), ErrorUpstream, "provider_error"},
		{"deadline", fmt.Errorf("anthropic: request failed: %w", context.DeadlineExceeded), ErrorUpstreamTimeout, "provider_timeout"},
		{"net timeout", fmt.Errorf("anthropic: request failed: %w", timeoutErr{}), ErrorUpstreamTimeout, "provider_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestChatService(t, &mockLLM{err: tc.err})
			_, err := svc.Complete(context.Background(), ChatInput{Message: "hello"})
			expectError(t, err, tc.code, tc.reason)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestComplete_UnrecognizedShapeDegrades(t *testing.T) {
	shapeErr := &anthropic.ShapeError{Keys: []string{"output"}, Raw: json.RawMessage(`{"output":"hi"}`)}
	svc := newTestChatService(t, &mockLLM{err: fmt.Errorf("wrapped: %w", shapeErr)})

	out, err := svc.Complete(context.Background(), ChatInput{Message: "hello"})
	require.NoError(t, err)
	require.Equal(t, RetryPrompt, out.Response)
	require.True(t, out.Degraded)
	require.ErrorIs(t, out.Warning, domain.ErrUnrecognizedReply)
	require.JSONEq(t, `{"output":"hi"}`, string(out.Raw))
}

func TestComplete_EmptyTextDegrades(t *testing.T) {
	svc := newTestChatService(t, &mockLLM{reply: textReply("  ")})

	out, err := svc.Complete(context.Background(), ChatInput{Message: "hello"})
	require.NoError(t, err)
	require.Equal(t, RetryPrompt, out.Response)
	require.True(t, out.Degraded)
	require.ErrorIs(t, out.Warning, errEmptyReply)
}

func TestComplete_ConcurrentRequestsStayIsolated(t *testing.T) {
	llm := &mockLLM{replyFunc: func(req domain.CompletionRequest) (domain.Completion, error) {
		return textReply("echo: " + req.Messages[0].Content), nil
	}}
	svc := newTestChatService(t, llm)

	const n = 50
	results := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Complete(context.Background(), ChatInput{Message: fmt.Sprintf("msg-%d", i)})
			results[i], errs[i] = out.Response, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, fmt.Sprintf("echo: msg-%d", i), results[i])
	}
	require.Equal(t, n, llm.callCount())
}
