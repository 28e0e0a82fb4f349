package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorNotFound        ErrorCode = "NOT_FOUND"
	ErrorConflict        ErrorCode = "CONFLICT"
	ErrorRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorUpstream        ErrorCode = "UPSTREAM_ERROR"
	ErrorUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

// reasonMessages holds the caller-facing text for reasons that have one.
var reasonMessages = map[string]string{
	"message_required":            "Message is required",
	"message_too_long":            "Message is too long",
	"invalid_client_id":           "Client ID must be 1-64 letters, digits, '-' or '_'",
	"empty_patch":                 "At least one setting must be provided",
	"invalid_theme":               "Theme must be one of light, dark, system",
	"invalid_currency":            "Currency must be a three-letter ISO 4217 code",
	"invalid_temperature_unit":    "Temperature unit must be celsius or fahrenheit",
	"invalid_clock_format":        "Clock format must be 12h or 24h",
	"revision_mismatch":           "Settings were changed by another session",
	"concurrent_update":           "Settings were changed by another session",
	"client_rate_limited":         "Too many requests, slow down",
	"settings_schema_unsupported": "Stored settings use an unsupported schema version",
	"invalid_json":                "Request body must be valid JSON",
	"invalid_settings_body":       "Request body must be a JSON object of known settings",
	"invalid_body_encoding":       "Request body is not valid base64",
	"body_too_large":              "Request body is too large",
	"invalid_if_match":            "If-Match must be a settings revision number",
}

var codeMessages = map[ErrorCode]string{
	ErrorInvalidInput:    "Invalid request",
	ErrorNotFound:        "Not found",
	ErrorConflict:        "Conflict",
	ErrorRateLimited:     "Rate limited",
	ErrorUpstream:        "API Error",
	ErrorUpstreamTimeout: "API timeout",
	ErrorInternal:        "Internal server error",
}

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is safe to show to API callers; it never includes e.Err.
func (e *Error) Message() string {
	if e == nil {
		return codeMessages[ErrorInternal]
	}
	if m, ok := reasonMessages[e.Reason]; ok {
		return m
	}
	if m, ok := codeMessages[e.Code]; ok {
		return m
	}
	return codeMessages[ErrorInternal]
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewError lets adapters raise use-case errors for concerns they own, such as
// request decoding and rate limiting.
func NewError(code ErrorCode, reason string, err error) *Error {
	return newError(code, reason, err)
}
