package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

const (
	DefaultModel            = "claude-3-5-haiku-latest"
	DefaultMaxTokens        = 300
	DefaultMaxMessageLength = 4000
)

var errEmptyReply = errors.New("usecase: provider reply carried no text")

type LLMClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// rawReplier is implemented by decode errors that keep the provider body.
type rawReplier interface {
	RawReply() json.RawMessage
}

type ChatConfig struct {
	Model            string
	MaxTokens        int
	MaxMessageLength int
}

// ChatService turns one chat message into one provider completion. It keeps
// no per-request state.
type ChatService struct {
	llm LLMClient
	cfg ChatConfig
}

type ChatInput struct {
	Message      string
	SystemPrompt string
}

type ChatOutput struct {
	Response   string
	StopReason string
	Shape      domain.ReplyShape
	Raw        json.RawMessage
	// Degraded is set when Response is RetryPrompt rather than provider text;
	// Warning then holds the reason.
	Degraded bool
	Warning  error
}

func NewChatService(llm LLMClient, cfg ChatConfig) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	return &ChatService{llm: llm, cfg: cfg}, nil
}

// Complete validates in, calls the provider once and normalizes the reply.
func (s *ChatService) Complete(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_required", nil)
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageLength {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	reply, err := s.llm.Complete(ctx, buildCompletionRequest(s.cfg, in.SystemPrompt, message))
	if err != nil {
		if errors.Is(err, domain.ErrUnrecognizedReply) {
			out := ChatOutput{Response: RetryPrompt, Degraded: true, Warning: err}
			var rr rawReplier
			if errors.As(err, &rr) {
				out.Raw = rr.RawReply()
			}
			return out, nil
		}
		return ChatOutput{}, classifyUpstream(err)
	}

	out := ChatOutput{
		Response:   reply.Text,
		StopReason: reply.StopReason,
		Shape:      reply.Shape,
		Raw:        reply.Raw,
	}
	if strings.TrimSpace(reply.Text) == "" {
		out.Response = RetryPrompt
		out.Degraded = true
		out.Warning = errEmptyReply
	}
	return out, nil
}

func classifyUpstream(err error) *Error {
	if status, ok := upstreamStatusCode(err); ok && status == 429 {
		return newError(ErrorRateLimited, "provider_rate_limited", err)
	}
	if isTimeout(err) {
		return newError(ErrorUpstreamTimeout, "provider_timeout", err)
	}
	return newError(ErrorUpstream, "provider_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
