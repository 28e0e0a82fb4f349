package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/usecase"
)

const (
	chatPath           = "/api/chat"
	settingsPathPrefix = "/api/settings/"
	healthPath         = "/healthz"

	maxBodyBytes = 64 << 10

	correlationHeader = "X-Correlation-Id"
	degradedHeader    = "X-Reply-Degraded"
)

type ChatUseCase interface {
	Complete(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type SettingsUseCase interface {
	Get(ctx context.Context, clientID string) (domain.Settings, error)
	Patch(ctx context.Context, clientID string, patch domain.SettingsPatch, ifMatch *int64) (domain.Settings, error)
}

// Limiter decides whether a caller key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// Request is the host-independent view of an inbound call.
type Request struct {
	Method   string
	Path     string
	Headers  map[string]string
	Body     []byte
	Base64   bool
	SourceIP string
}

// Response is what every adapter writes back.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

type chatRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"systemPrompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type debugChatResponse struct {
	Response     string          `json:"response"`
	StopReason   *string         `json:"stop_reason"`
	FullResponse json.RawMessage `json:"full_response"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Details  string `json:"details,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Handler serves the chat and settings API for every hosting adapter.
type Handler struct {
	chat     ChatUseCase
	settings SettingsUseCase
	limiter  Limiter
	logger   *slog.Logger

	allowedOrigin  string
	debugResponses bool
	fallbackEmail  string
}

type Option func(*Handler)

// WithSettings enables the /api/settings routes.
func WithSettings(s SettingsUseCase) Option {
	return func(h *Handler) { h.settings = s }
}

func WithLimiter(l Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) {
		if o := strings.TrimSpace(origin); o != "" {
			h.allowedOrigin = o
		}
	}
}

// WithDebugResponses adds stop_reason and full_response to chat replies.
func WithDebugResponses(enabled bool) Option {
	return func(h *Handler) { h.debugResponses = enabled }
}

// WithFallbackEmail sets the address quoted in upstream failure fallbacks.
func WithFallbackEmail(email string) Option {
	return func(h *Handler) { h.fallbackEmail = strings.TrimSpace(email) }
}

func NewHandler(chat ChatUseCase, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	h := &Handler{
		chat:          chat,
		logger:        slog.Default(),
		allowedOrigin: "*",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Serve routes one request. It never returns a nil Headers map.
func (h *Handler) Serve(ctx context.Context, req Request) Response {
	start := time.Now()
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = newUUID()
	}
	logger := h.logger.With("correlation_id", correlationID, "method", req.Method, "path", req.Path)

	resp := h.route(ctx, logger, req)
	resp.Headers[correlationHeader] = correlationID
	for k, v := range h.corsHeaders() {
		resp.Headers[k] = v
	}

	logger.Info("request served", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return resp
}

func (h *Handler) route(ctx context.Context, logger *slog.Logger, req Request) Response {
	method := strings.ToUpper(req.Method)
	if method == http.MethodOptions {
		return Response{StatusCode: http.StatusOK, Headers: map[string]string{}}
	}

	path := normalizePath(req.Path)
	switch {
	case path == chatPath:
		if method != http.MethodPost {
			return methodNotAllowed(http.MethodPost, http.MethodOptions)
		}
		body, err := requestBody(req)
		if err != nil {
			return h.errorResponse(logger, err)
		}
		return h.handleChat(ctx, logger, req, body)

	case path == healthPath:
		if method != http.MethodGet {
			return methodNotAllowed(http.MethodGet)
		}
		return jsonResponse(http.StatusOK, healthResponse{Status: "ok"})

	case strings.HasPrefix(path, settingsPathPrefix) && h.settings != nil:
		clientID := strings.TrimPrefix(path, settingsPathPrefix)
		if clientID == "" || strings.Contains(clientID, "/") {
			return notFound()
		}
		switch method {
		case http.MethodGet:
			return h.handleGetSettings(ctx, logger, clientID)
		case http.MethodPatch:
			body, err := requestBody(req)
			if err != nil {
				return h.errorResponse(logger, err)
			}
			return h.handlePatchSettings(ctx, logger, req, clientID, body)
		default:
			return methodNotAllowed(http.MethodGet, http.MethodPatch, http.MethodOptions)
		}
	}
	return notFound()
}

func (h *Handler) handleChat(ctx context.Context, logger *slog.Logger, req Request, body []byte) Response {
	if h.limiter != nil && !h.limiter.Allow(clientKey(req)) {
		return h.errorResponse(logger, usecase.NewError(usecase.ErrorRateLimited, "client_rate_limited", nil))
	}

	var in chatRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			return h.errorResponse(logger, usecase.NewError(usecase.ErrorInvalidInput, "invalid_json", err))
		}
	}

	out, err := h.chat.Complete(ctx, usecase.ChatInput{Message: in.Message, SystemPrompt: in.SystemPrompt})
	if err != nil {
		return h.errorResponse(logger, err)
	}

	var resp Response
	if h.debugResponses {
		var stopReason *string
		if out.StopReason != "" {
			stopReason = &out.StopReason
		}
		resp = jsonResponse(http.StatusOK, debugChatResponse{
			Response:     out.Response,
			StopReason:   stopReason,
			FullResponse: out.Raw,
		})
	} else {
		resp = jsonResponse(http.StatusOK, chatResponse{Response: out.Response})
	}
	if out.Degraded {
		logger.Warn("provider reply degraded to retry prompt", "err", out.Warning, "shape", out.Shape.String())
		resp.Headers[degradedHeader] = "true"
	}
	return resp
}

func (h *Handler) errorResponse(logger *slog.Logger, err error) Response {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		ucErr = usecase.NewError(usecase.ErrorInternal, "unexpected_error", err)
	}

	status := statusForCode(ucErr.Code)
	if status >= 500 {
		logger.Error("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", err)
	} else {
		logger.Info("request rejected", "code", ucErr.Code, "reason", ucErr.Reason)
	}

	body := errorResponse{
		Error:   ucErr.Message(),
		Code:    string(ucErr.Code),
		Details: ucErr.Reason,
	}
	if isUpstreamFailure(ucErr) {
		body.Fallback = h.fallbackText()
	}
	return jsonResponse(status, body)
}

func (h *Handler) fallbackText() string {
	if h.fallbackEmail == "" {
		return "I'm having trouble right now. Please try again in a moment."
	}
	return "I'm having trouble right now. Email me at " + h.fallbackEmail
}

func (h *Handler) corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":   h.allowedOrigin,
		"Access-Control-Allow-Methods":  "GET, POST, PATCH, OPTIONS",
		"Access-Control-Allow-Headers":  "Content-Type, If-Match, X-Correlation-Id",
		"Access-Control-Expose-Headers": "ETag, X-Correlation-Id, X-Reply-Degraded",
	}
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorConflict:
		return http.StatusConflict
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	case usecase.ErrorUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func isUpstreamFailure(err *usecase.Error) bool {
	switch err.Code {
	case usecase.ErrorUpstream, usecase.ErrorUpstreamTimeout:
		return true
	case usecase.ErrorRateLimited:
		return err.Reason != "client_rate_limited"
	}
	return false
}

func requestBody(req Request) ([]byte, error) {
	body := req.Body
	if req.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			return nil, usecase.NewError(usecase.ErrorInvalidInput, "invalid_body_encoding", err)
		}
		body = decoded
	}
	if len(body) > maxBodyBytes {
		return nil, usecase.NewError(usecase.ErrorInvalidInput, "body_too_large", nil)
	}
	return body, nil
}

func jsonResponse(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error","code":"INTERNAL_ERROR"}`)
	}
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func notFound() Response {
	return jsonResponse(http.StatusNotFound, errorResponse{Error: "Not found", Code: string(usecase.ErrorNotFound)})
}

func methodNotAllowed(allowed ...string) Response {
	resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
	resp.Headers["Allow"] = strings.Join(allowed, ", ")
	return resp
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// headerValue looks name up case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func clientKey(req Request) string {
	if req.SourceIP != "" {
		return req.SourceIP
	}
	return "unknown"
}

var newUUID = func() string {
	return uuid.NewString()
}
