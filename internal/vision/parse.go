// internal/vision/parse.go
package vision

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeObject parses a JSON object out of a model reply that may contain
// surrounding prose or markdown fences.
func decodeObject(response string, out interface{}) error {
	return decodeBounded(response, '{', '}', out)
}

// decodeArray parses a JSON array out of a model reply.
func decodeArray(response string, out interface{}) error {
	return decodeBounded(response, '[', ']', out)
}

func decodeBounded(response string, opener, closer byte, out interface{}) error {
	// First try direct parsing: well behaved models return bare JSON.
	if err := jsonit.UnmarshalFromString(response, out); err == nil {
		return nil
	}

	start := strings.IndexByte(response, opener)
	if start == -1 {
		return fmt.Errorf("no JSON payload found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
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
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				if err := jsonit.UnmarshalFromString(response[start:i+1], out); err != nil {
					return fmt.Errorf("failed to parse extracted JSON: %w", err)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("no matching closing %q found", string(closer))
}
