package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
		ok   bool
	}{
		{
			name: "empty",
			text: "   \n",
		},
		{
			name: "fenced json block",
			text: "Here you go:\n```json\n{\"summary\": \"done\", \"key_points\": [\"a\"]}\n```\nThanks!",
			want: map[string]any{"summary": "done", "key_points": []any{"a"}},
			ok:   true,
		},
		{
			name: "fenced block with other tag",
			text: "```javascript\n{\"x\": 1}\n```",
			want: map[string]any{"x": float64(1)},
			ok:   true,
		},
		{
			name: "bare object in prose",
			text: "The plan is {\"title\": \"T\", \"children\": []} as requested.",
			want: map[string]any{"title": "T", "children": []any{}},
			ok:   true,
		},
		{
			name: "braces inside strings",
			text: "prefix {\"a\": \"}{\", \"b\": {\"c\": \"\\\"}\"}} suffix",
			want: map[string]any{"a": "}{", "b": map[string]any{"c": "\"}"}},
			ok:   true,
		},
		{
			name: "first outermost span wins",
			text: "{\"first\": true} and {\"second\": true}",
			want: map[string]any{"first": true},
			ok:   true,
		},
		{
			name: "broken fence falls back to bare object",
			text: "```json\nnot json\n```\nbut later {\"k\": \"v\"}",
			want: map[string]any{"k": "v"},
			ok:   true,
		},
		{
			name: "array is not an object",
			text: "```json\n[1, 2, 3]\n```",
		},
		{
			name: "unbalanced",
			text: "{\"a\": 1",
		},
		{
			name: "invalid object",
			text: "{not: json}",
		},
		{
			// 第一个 '{' 之前的引号不参与扫描，引号内的 '{' 也会开启候选片段
			name: "brace quoted in prose before object",
			text: "prefix \"quote {\" {\"a\":1}",
		},
		{
			name: "no json at all",
			text: "I could not come up with a plan, sorry.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestObjectSpans(t *testing.T) {
	spans := objectSpans(`} {"a":{"b":1}} x {"c":"{"} {`)
	assert.Equal(t, []string{`{"a":{"b":1}}`, `{"c":"{"}`}, spans)
}
