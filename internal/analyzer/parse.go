package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nwrslept/CallAnalyzer/internal/types"
)

// stripFences removes a Markdown code fence wrapper if the model added one.
// Both ```json ... ``` and bare ``` ... ``` occur; unfenced text passes
// through untouched.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// drop the opening fence line (``` or ```json)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// escapeControlChars rewrites raw control characters that appear inside JSON
// string literals into their escaped forms. Transcripts routinely carry real
// newlines, which encoding/json otherwise rejects.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			case r < 0x20:
				switch r {
				case '\n':
					b.WriteString(`\n`)
				case '\r':
					b.WriteString(`\r`)
				case '\t':
					b.WriteString(`\t`)
				default:
					fmt.Fprintf(&b, `\u%04x`, r)
				}
				continue
			}
		} else if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseAnalysis turns the raw model text into a normalized Analysis.
// A top-level array is collapsed to its first element; an empty array is a
// parse failure like any other malformed answer.
func parseAnalysis(raw string) (types.Analysis, error) {
	clean := escapeControlChars(stripFences(raw))
	if clean == "" {
		return types.Analysis{}, fmt.Errorf("empty response")
	}

	payload := []byte(clean)
	if payload[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(payload, &list); err != nil {
			return types.Analysis{}, fmt.Errorf("invalid json array: %w", err)
		}
		if len(list) == 0 {
			return types.Analysis{}, fmt.Errorf("model returned an empty list")
		}
		payload = list[0]
	}

	var a types.Analysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return types.Analysis{}, fmt.Errorf("invalid json object: %w", err)
	}
	return a, nil
}
