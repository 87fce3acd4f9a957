package segment

import (
	"encoding/json"
	"strings"
)

// repairJSONArray recovers a parseable JSON array from model output that may
// be wrapped in prose or truncated mid-object. Truncated output keeps every
// fully formed top-level object and drops the partial tail. Returns false
// when no valid array can be recovered.
func repairJSONArray(s string) (string, bool) {
	start := strings.Index(s, "[")
	if start < 0 {
		return "", false
	}
	s = s[start:]

	if end := strings.LastIndex(s, "]"); end >= 0 && json.Valid([]byte(s[:end+1])) {
		return s[:end+1], true
	}

	// Truncated: scan for the last top-level object that closed cleanly.
	depth := 0
	inString := false
	escaped := false
	lastComplete := -1
	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 1 {
					lastComplete = i
				}
			}
		case ']':
			if !inString {
				depth--
			}
		}
	}
	if lastComplete < 0 {
		return "", false
	}

	repaired := s[:lastComplete+1] + "]"
	if !json.Valid([]byte(repaired)) {
		return "", false
	}
	return repaired, true
}
