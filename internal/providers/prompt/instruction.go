package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var designRules = []string{
	"Keep every color, object and style the user names exactly as written. Never swap or drop them.",
	"Never add objects, symbols, text or characters the user did not ask for.",
	"You may add quality and style keywords (vector, flat design, smooth edges, centered, white background, high quality) only when they do not contradict the request.",
	"If the request names a business or brand, include its name as on-icon text and spell it letter by letter in the prompt so the image model renders it correctly.",
	"Write the message as one or two friendly sentences explaining the design choice.",
}

// BuildInstruction renders the research instruction for a raw request.
func BuildInstruction(rawText string) string {
	request := strings.TrimSpace(rawText)
	sb := &strings.Builder{}
	sb.WriteString("[INST] You are an expert prompt engineer for text-to-image models.\n")
	sb.WriteString("Convert the user's request into a high-fidelity prompt for a square app icon.\n\n")
	fmt.Fprintf(sb, "User Request: %q\n\n", request)
	sb.WriteString("Rules:\n")
	for i, rule := range designRules {
		fmt.Fprintf(sb, "%d. %s\n", i+1, rule)
	}
	if name := BusinessName(request); name != "" {
		fmt.Fprintf(sb, "\nBusiness name: %q. Spell it exactly as: %s.\n", name, SpellOut(name))
	}
	sb.WriteString("\nRespond with exactly two lines and nothing else:\n")
	sb.WriteString("Message: <explanation for the user>\n")
	sb.WriteString("Prompt: <image generation prompt>\n")
	sb.WriteString("[/INST]")
	return sb.String()
}

var (
	quotedNamePattern = regexp.MustCompile(`["“]([^"”]{2,40})["”]`)
	namedPattern      = regexp.MustCompile(`\b(?:[Cc]alled|[Nn]amed|[Ff]or|[Bb]rand)\s+([A-Z][\w&'-]*(?:\s+[A-Z][\w&'-]*){0,3})`)
)

// BusinessName extracts a likely business name from a request: a quoted
// phrase first, then capitalized words after "called", "named", "for" or
// "brand".
func BusinessName(rawText string) string {
	if m := quotedNamePattern.FindStringSubmatch(rawText); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	if m := namedPattern.FindStringSubmatch(rawText); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// SpellOut renders a name letter by letter and keeps each letter's case, e.g.
// "iPhone Co" -> "i-P-h-o-n-e C-o".
func SpellOut(name string) string {
	words := strings.Fields(name)
	out := make([]string, 0, len(words))
	for _, w := range words {
		var letters []string
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				letters = append(letters, string(r))
			}
		}
		if len(letters) > 0 {
			out = append(out, strings.Join(letters, "-"))
		}
	}
	return strings.Join(out, " ")
}
