// Package overrides holds hand-authored prompts for entities whose appearance
// must be exact (national flags). A match bypasses the prompt researcher.
package overrides

import (
	"strings"

	"golang.org/x/text/cases"

	"iconforge/internal/domain"
)

// Entry maps a key phrase to a verbatim prompt and explanation.
type Entry struct {
	Key         string
	Prompt      string
	Explanation string
}

// Table is an ordered set of entries. Order is the tie-break when several
// keys occur in the same request.
type Table struct {
	entries []Entry
}

// New builds a table from entries in the given order.
func New(entries []Entry) *Table {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := strings.TrimSpace(Fold(e.Key))
		if key == "" {
			continue
		}
		e.Key = key
		out = append(out, e)
	}
	return &Table{entries: out}
}

// Default returns the built-in flag table.
func Default() *Table {
	return New(defaultEntries)
}

// Lookup returns the first entry whose key is contained in rawText,
// compared case-insensitively.
func (t *Table) Lookup(rawText string) (domain.EnhancedPrompt, bool) {
	if t == nil || len(t.entries) == 0 {
		return domain.EnhancedPrompt{}, false
	}
	folded := Fold(rawText)
	for _, e := range t.entries {
		if strings.Contains(folded, e.Key) {
			return domain.EnhancedPrompt{
				ImagePrompt: e.Prompt,
				Explanation: e.Explanation,
				Source:      domain.PromptSourceOverride,
			}, true
		}
	}
	return domain.EnhancedPrompt{}, false
}

// Fold case-folds s for caseless comparison. A Caser is stateful, so a
// fresh one is used per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Len reports the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

var defaultEntries = []Entry{
	{
		Key:         "uae",
		Prompt:      "Flag of the United Arab Emirates as a square app icon: a vertical red band on the hoist side spanning the full height, and three equal horizontal bands of green (top), white (middle) and black (bottom) to its right. Flat vector, exact official colors, no emblem, no text, no extra symbols, crisp edges, centered, white background.",
		Explanation: "I used the official UAE flag layout: a red vertical band with green, white and black horizontal stripes, kept flat and exact so it reads instantly at small sizes.",
	},
	{
		Key:         "usa",
		Prompt:      "Flag of the United States of America as a square app icon: thirteen alternating horizontal stripes, seven red and six white, starting and ending with red, and a blue canton in the upper hoist corner holding fifty white five-pointed stars in nine offset rows. Flat vector, exact official colors, no text, crisp edges, centered, white background.",
		Explanation: "I kept the Stars and Stripes faithful: 13 red and white stripes with the blue canton of 50 stars, in a clean flat style that stays legible as an icon.",
	},
	{
		Key:         "uk",
		Prompt:      "Flag of the United Kingdom (Union Jack) as a square app icon: dark blue field, white-bordered red St George's cross centered, white diagonal St Andrew's saltire with the offset red St Patrick's saltire. Flat vector, exact official colors and proportions, no text, crisp edges, centered, white background.",
		Explanation: "This is the Union Jack with its layered crosses of St George, St Andrew and St Patrick, drawn flat and precise for icon use.",
	},
}
