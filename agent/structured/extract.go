package structured

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedBlock matches a markdown code fence whose opening line carries a
// language tag, e.g. ```json.
var fencedBlock = regexp.MustCompile("(?s)```[ \t]*([A-Za-z][\\w+.-]*)[^\\n]*\\n(.*?)```")

// ExtractJSON returns the first JSON object found in text.
// It reports false when text is empty or nothing parses to an object.
func ExtractJSON(text string) (map[string]any, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	// 1. 带语言标记的代码块
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if obj, ok := parseObject(m[2]); ok {
			return obj, true
		}
	}

	// 2. 最外层 {...} 片段
	for _, span := range objectSpans(text) {
		if obj, ok := parseObject(span); ok {
			return obj, true
		}
	}

	return nil, false
}

func parseObject(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	if obj == nil {
		return nil, false
	}
	return obj, true
}

// objectSpans returns the balanced top-level {...} spans of text in order.
// Braces inside JSON string literals are ignored. An unterminated span
// ends the scan.
func objectSpans(text string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			// Quotes only delimit strings inside a candidate object.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, text[start:i+1])
				start = -1
			}
		}
	}
	return spans
}
