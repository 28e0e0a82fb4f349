package domain

import (
	"encoding/json"
	"errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single outbound completion call.
type CompletionRequest struct {
	Model     string
	MaxTokens int
	System    string
	Messages  []ChatMessage
}

// ReplyShape identifies which of the known provider reply layouts a payload
// was decoded from.
type ReplyShape int

const (
	ShapeUnknown ReplyShape = iota
	// ShapeContentBlocks is {"content":[{"type":"text","text":"..."}]}.
	ShapeContentBlocks
	// ShapeContentStrings is {"content":["..."]}.
	ShapeContentStrings
	// ShapeFlatText is {"text":"..."}.
	ShapeFlatText
	// ShapeFlatContent is {"content":"..."}.
	ShapeFlatContent
)

func (s ReplyShape) String() string {
	switch s {
	case ShapeContentBlocks:
		return "content_blocks"
	case ShapeContentStrings:
		return "content_strings"
	case ShapeFlatText:
		return "flat_text"
	case ShapeFlatContent:
		return "flat_content"
	default:
		return "unknown"
	}
}

// Completion is a decoded provider reply.
type Completion struct {
	Text       string
	StopReason string
	Shape      ReplyShape
	// Raw is the provider-native payload, untouched.
	Raw json.RawMessage
}

// ErrUnrecognizedReply is matched by decode errors for payloads that fit none
// of the known reply shapes.
var ErrUnrecognizedReply = errors.New("unrecognized provider reply shape")
