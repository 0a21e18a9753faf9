package classify

import (
	"math"
	"strconv"
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// Normalize maps a repaired reply onto a record. Placeholder URLs are
// replaced by the locally extracted link (or the "no link" placeholder),
// "none" optionals become empty, and a missing confidence means 100.
func Normalize(f Fields, extractedURL string) record.Record {
	rec := record.Record{
		Section:     record.Section(f.String("section")),
		Alternative: record.Section(optional(f.String("alternative"))),
		Confidence:  confidence(f),
		Name:        f.String("name"),
		Description: f.String("desc"),
		URL:         f.String("url"),
		Platform:    optional(f.String("platform")),
		PromptBody:  optional(f.String("prompt_body")),
	}

	if isNoValue(rec.URL) {
		if record.IsConcreteURL(extractedURL) {
			rec.URL = extractedURL
		} else {
			rec.URL = record.URLPlaceholder
		}
	}

	return rec
}

func isNoValue(u string) bool {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "", "none", "missing", "#":
		return true
	}
	return false
}

func optional(v string) string {
	if strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func confidence(f Fields) int {
	if !f.Has("confidence") {
		return 100
	}
	switch v := f["confidence"].(type) {
	case float64:
		if v > 0 && v <= 1 && v != math.Trunc(v) {
			// fractional scores such as 0.85
			return int(math.Round(v * 100))
		}
		return int(math.Round(v))
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64); err == nil {
			return int(math.Round(n))
		}
	}
	return 100
}
