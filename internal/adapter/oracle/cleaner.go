package oracle

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// cleanJSONObject strips markdown fences and surrounding prose from a model
// reply and returns the first complete JSON object it contains.
func cleanJSONObject(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	s = removeMarkdownFences(s)
	obj, ok := extractObject(s)
	if !ok {
		return nil, malformed("no JSON object in response")
	}
	if !json.Valid([]byte(obj)) {
		obj = trailingComma.ReplaceAllString(obj, "$1")
		if !json.Valid([]byte(obj)) {
			return nil, malformed("response is not valid JSON")
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(obj)); err != nil {
		return nil, malformed("compact response: %v", err)
	}
	return compact.Bytes(), nil
}

func removeMarkdownFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// extractObject returns the brace-balanced object starting at the first '{',
// ignoring braces inside string literals.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
