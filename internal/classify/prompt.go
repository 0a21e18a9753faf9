package classify

import (
	"fmt"
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// SystemPrompt builds the instruction payload sent to every backend. It is
// derived from the taxonomy so the category list lives in one place.
func SystemPrompt(t *record.Taxonomy) string {
	var b strings.Builder

	b.WriteString("### ROLE: Bookmark Classifier (Strict)\n\n")
	b.WriteString("### CATEGORY LOGIC (Check strict order):\n")
	for i, c := range t.Sections {
		fmt.Fprintf(&b, "%d. '%s' (%s): %s\n", i+1, c.Code, c.Label, c.Rule)
		if c.Hint != "" {
			fmt.Fprintf(&b, "   *%s*\n", c.Hint)
		}
	}

	b.WriteString("\n### OUTPUT JSON:\n")
	b.WriteString("{\n")
	b.WriteString("  \"section\": \"category\",\n")
	b.WriteString("  \"alternative\": \"alt_category_or_none\",\n")
	b.WriteString("  \"confidence\": 90,\n")
	b.WriteString("  \"name\": \"Short English Title\",\n")
	b.WriteString("  \"desc\": \"One or two sentence summary\",\n")
	b.WriteString("  \"url\": \"Link or 'none'\",\n")
	b.WriteString("  \"platform\": \"Android/iOS/none\",\n")
	b.WriteString("  \"prompt_body\": \"Full prompt text or 'none'\"\n")
	b.WriteString("}\n")
	b.WriteString("### RULES: Double quotes JSON. No empty fields (use 'none'). ")
	b.WriteString("Set 'alternative' only when torn between two categories.")

	return b.String()
}

// UserPayload builds the per-message payload: the text capped at maxChars
// runes plus the link found locally.
func UserPayload(text, extractedURL string, maxChars int) string {
	if maxChars > 0 {
		text = record.Truncate(text, maxChars, "")
	}
	return "ANALYZE:\n" + text + "\nURL: " + extractedURL
}
