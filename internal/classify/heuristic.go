package classify

import (
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// PromptMarkers are case-sensitive substrings that identify text which is
// itself an AI instruction.
var PromptMarkers = []string{
	"<Role>", "<System>", "<Context>", "<Instructions>", "<Output_Format>",
	"<Роль>", "<Система>", "<Контекст>", "<Инструкции>",
	"Act as a", "You are a", "Представь, что ты",
	"Напиши промпт", "System prompt:", "Промт:", "Prompt:",
	"Напиши код", "Write code",
}

const (
	defaultPromptTitle = "AI Prompt"
	promptDescription  = "System Prompt (Auto-detected)"
)

// DetectPrompt classifies text that carries a prompt marker without calling
// any backend. ok is false when no marker matches.
func DetectPrompt(text string) (rec record.Record, ok bool) {
	start := -1
	for _, m := range PromptMarkers {
		if i := strings.Index(text, m); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start < 0 {
		return record.Record{}, false
	}

	body := strings.TrimSpace(text[start:])
	if body == "" {
		body = text
	}

	return record.Record{
		Section:     record.SectionPrompts,
		Confidence:  100,
		Name:        promptTitle(text),
		Description: promptDescription,
		URL:         record.URLPlaceholder,
		PromptBody:  body,
	}, true
}

// promptTitle picks the first line longer than ten characters that is not a link.
func promptTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) > 10 && !strings.Contains(line, "http") {
			return record.Truncate(line, record.MaxNameChars, "...")
		}
	}
	return defaultPromptTitle
}
