package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

// replyEnvelope covers every field the known reply shapes use.
type replyEnvelope struct {
	Content    json.RawMessage `json:"content"`
	Text       *string         `json:"text"`
	StopReason *string         `json:"stop_reason"`
}

type contentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

// ShapeError reports a reply that decoded as JSON but matched no known shape.
type ShapeError struct {
	Keys []string
	Raw  json.RawMessage
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("anthropic: %s (top-level keys: [%s])", domain.ErrUnrecognizedReply, strings.Join(e.Keys, ", "))
}

func (e *ShapeError) Is(target error) bool {
	return target == domain.ErrUnrecognizedReply
}

// RawReply returns the provider body that failed to decode.
func (e *ShapeError) RawReply() json.RawMessage {
	return e.Raw
}

// DecodeReply classifies raw into one of the domain.ReplyShape variants.
// Shapes are tried in order: content blocks, content strings, flat text,
// flat content string.
func DecodeReply(raw []byte) (domain.Completion, error) {
	var env replyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Completion{}, fmt.Errorf("anthropic: decode response: %w", err)
	}

	out := domain.Completion{Raw: json.RawMessage(raw)}
	if env.StopReason != nil {
		out.StopReason = *env.StopReason
	}

	content := bytes.TrimSpace(env.Content)
	switch {
	case len(content) > 0 && content[0] == '[':
		if text, ok := joinBlocks(content); ok {
			out.Text, out.Shape = text, domain.ShapeContentBlocks
			return out, nil
		}
		if text, ok := joinStrings(content); ok {
			out.Text, out.Shape = text, domain.ShapeContentStrings
			return out, nil
		}
	case env.Text != nil:
		out.Text, out.Shape = *env.Text, domain.ShapeFlatText
		return out, nil
	case len(content) > 0 && content[0] == '"':
		var s string
		if err := json.Unmarshal(content, &s); err == nil {
			out.Text, out.Shape = s, domain.ShapeFlatContent
			return out, nil
		}
	}

	if env.Text != nil {
		out.Text, out.Shape = *env.Text, domain.ShapeFlatText
		return out, nil
	}
	return domain.Completion{}, &ShapeError{Keys: topLevelKeys(raw), Raw: json.RawMessage(raw)}
}

func joinBlocks(content []byte) (string, bool) {
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return "", false
	}
	var sb strings.Builder
	found := false
	for _, b := range blocks {
		if b.Text == nil {
			continue
		}
		if b.Type != "" && b.Type != "text" {
			continue
		}
		sb.WriteString(*b.Text)
		found = true
	}
	return sb.String(), found
}

func joinStrings(content []byte) (string, bool) {
	var parts []string
	if err := json.Unmarshal(content, &parts); err != nil || len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ""), true
}

func topLevelKeys(raw []byte) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
