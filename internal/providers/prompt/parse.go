package prompt

import (
	"regexp"
	"strings"

	"iconforge/internal/domain"
)

// minRawPromptLen is the shortest output accepted as a prompt when the model
// ignored the two-line format.
const minRawPromptLen = 10

var (
	messageLine = regexp.MustCompile(`(?m)^\s*\**Message\**:\s*(.+)$`)
	promptLine  = regexp.MustCompile(`(?m)^\s*\**Prompt\**:\s*(.+)$`)
)

// ParseResponse extracts the message and prompt lines. When no prompt line
// exists but the output is long enough, the whole output becomes the prompt
// with an empty message. ok is false when nothing usable came back.
func ParseResponse(raw string) (domain.EnhancedPrompt, bool) {
	text := trimCodeFence(raw)
	if text == "" {
		return domain.EnhancedPrompt{}, false
	}
	if m := promptLine.FindStringSubmatch(text); len(m) == 2 {
		p := cleanLine(m[1])
		if p != "" {
			out := domain.EnhancedPrompt{ImagePrompt: p, Source: domain.PromptSourceResearcher}
			if mm := messageLine.FindStringSubmatch(text); len(mm) == 2 {
				out.Explanation = cleanLine(mm[1])
			}
			return out, true
		}
	}
	whole := strings.Trim(strings.TrimSpace(text), `"`)
	if len(whole) <= minRawPromptLen {
		return domain.EnhancedPrompt{}, false
	}
	return domain.EnhancedPrompt{ImagePrompt: whole, Source: domain.PromptSourceResearcher}, true
}

func cleanLine(s string) string {
	return strings.Trim(s, " \t*\"")
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```text")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
