package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONObject returns the first balanced {...} object in text. Models often
// wrap their JSON in prose or markdown code blocks; everything outside the object
// is ignored. Braces inside string literals do not count towards the balance.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("%w: unbalanced JSON object", ErrMalformedResponse)
}
