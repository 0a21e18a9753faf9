package classify

import (
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

const (
	fallbackTitleChars = 50
	fallbackDescChars  = 100
	fallbackTitle      = "New Resource"
)

// Fallback classifies text from its link alone. It never fails.
func (e *LinkExtractor) Fallback(text string) record.Record {
	url := e.Extract(text)

	first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	name := record.Truncate(strings.TrimSpace(first), fallbackTitleChars, "...")
	if name == "" {
		name = fallbackTitle
	}

	if record.IsConcreteURL(url) && isCodeHost(hostOf(url)) {
		return record.Record{
			Section:     record.SectionDev,
			Confidence:  100,
			Name:        name,
			Description: "GitHub Repo",
			URL:         url,
		}
	}

	if !record.IsConcreteURL(url) {
		url = record.URLPlaceholder
	}
	return record.Record{
		Section:     record.SectionIdeas,
		Confidence:  50,
		Name:        name,
		Description: record.Truncate(strings.TrimSpace(text), fallbackDescChars, "..."),
		URL:         url,
	}
}

func isCodeHost(host string) bool {
	return host == "github.com" || strings.HasSuffix(host, ".github.com")
}
