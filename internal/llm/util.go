package llm

import "strings"

// StripCodeFence removes a markdown code fence wrapped around a whole
// response, including a language tag such as ```html or ```wiki.
// Models add one even when the prompt asks for raw markup.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}

	inner := strings.TrimPrefix(text, "```")
	inner = strings.TrimSuffix(inner, "```")
	if idx := strings.Index(inner, "\n"); idx >= 0 {
		firstLine := inner[:idx]
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " <{[=") {
			inner = inner[idx+1:]
		}
	}
	return strings.TrimSpace(inner)
}
