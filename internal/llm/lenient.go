package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONArray recovers the JSON array from a model response that may wrap
// it in markdown fences or prose. Returns an error when no balanced array is
// present.
func ExtractJSONArray(content string) ([]byte, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.IndexByte(content, '[')
	if start < 0 {
		return nil, fmt.Errorf("no JSON array in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
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
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return []byte(content[start : i+1]), nil
			}
		}
	}
	return nil, fmt.Errorf("unbalanced JSON array in response")
}

// placeholders the service sometimes emits instead of omitting a field.
var placeholderValues = map[string]struct{}{
	"":              {},
	"null":          {},
	"none":          {},
	"n/a":           {},
	"not available": {},
	"unknown":       {},
}

func isPlaceholder(s string) bool {
	_, ok := placeholderValues[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
