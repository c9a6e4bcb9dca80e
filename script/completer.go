// Package script asks a language model to write dialogue for a cast of characters.
package script

import (
	"context"
	"strings"
)

// Request is a single-shot completion request.
// Schema, when set, is a JSON schema the response should follow; completers
// that cannot enforce it rely on the prompt alone.
type Request struct {
	Prompt     string
	SchemaName string
	Schema     interface{}
}

// Completer is an external language-model provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// cleanJSONBlock strips markdown code fences around a JSON answer.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// ExtractJSONObject returns the first balanced {...} block in text, ignoring
// braces inside JSON strings. It returns false when no complete object exists.
func ExtractJSONObject(text string) (string, bool) {
	text = cleanJSONBlock(text)
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
