package anthropic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

func TestDecodeReply_KnownShapes(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		text  string
		shape domain.ReplyShape
	}{
		{"content blocks", `{"content":[{"text":"T"}]}`, "T", domain.ShapeContentBlocks},
		{"typed content blocks", `{"content":[{"type":"text","text":"Hello, "},{"type":"tool_use","id":"x"},{"type":"text","text":"world"}]}`, "Hello, world", domain.ShapeContentBlocks},
		{"content strings", `{"content":["T"]}`, "T", domain.ShapeContentStrings},
		{"flat text", `{"text":"T"}`, "T", domain.ShapeFlatText},
		{"flat content", `{"content":"T"}`, "T", domain.ShapeFlatContent},
		{"empty blocks fall back to text", `{"content":[],"text":"T"}`, "T", domain.ShapeFlatText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := DecodeReply([]byte(tc.raw))
			require.NoError(t, err)
			require.Equal(t, tc.text, out.Text)
			require.Equal(t, tc.shape, out.Shape)
			require.JSONEq(t, tc.raw, string(out.Raw))
		})
	}
}

func TestDecodeReply_StopReason(t *testing.T) {
	out, err := DecodeReply([]byte(`{"content":[{"type":"text","text":"cut"}],"stop_reason":"max_tokens"}`))
	require.NoError(t, err)
	require.Equal(t, "max_tokens", out.StopReason)
}

func TestDecodeReply_Unrecognized(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"content":[]}`,
		`{"content":[{"type":"image"}]}`,
		`{"content":42,"choices":[]}`,
		`null`,
	} {
		_, err := DecodeReply([]byte(raw))
		require.ErrorIs(t, err, domain.ErrUnrecognizedReply, "raw=%s", raw)
	}

	_, err := DecodeReply([]byte(`{"choices":[],"id":"x"}`))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, []string{"choices", "id"}, shapeErr.Keys)
	require.JSONEq(t, `{"choices":[],"id":"x"}`, string(shapeErr.RawReply()))
}

func TestDecodeReply_MalformedJSON(t *testing.T) {
	_, err := DecodeReply([]byte(`{"content":`))
	require.ErrorContains(t, err, "decode response")
	require.NotErrorIs(t, err, domain.ErrUnrecognizedReply)
}
