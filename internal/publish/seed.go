package publish

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
	"github.com/ygalaxyy/bookmarkbot/internal/store"
)

// SeedMessage is the change message of the initial document.
const SeedMessage = "Init: bookmark document via bookmarkbot"

// Skeleton builds an empty document with one heading and marker per
// taxonomy section.
func Skeleton(t *record.Taxonomy) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>Bookmarks</title>\n")
	b.WriteString("<script src=\"https://cdn.tailwindcss.com\"></script>\n")
	b.WriteString("</head>\n<body class=\"bg-gray-950 text-gray-100\">\n<main class=\"max-w-5xl mx-auto p-6 space-y-10\">\n")
	for _, code := range t.Codes() {
		cat, _ := t.Lookup(code)
		label := cat.Label
		if label == "" {
			label = string(code)
		}
		fmt.Fprintf(&b, "<section id=\"%s\">\n<h2 class=\"text-xl font-bold mb-4\">%s</h2>\n",
			html.EscapeString(string(code)), html.EscapeString(label))
		b.WriteString("<div class=\"grid gap-4 md:grid-cols-2\">\n")
		b.WriteString(record.MarkerFor(code))
		b.WriteString("\n</div>\n</section>\n")
	}
	b.WriteString("</main>\n</body>\n</html>\n")
	return b.String()
}

// Seed creates the document if it does not exist. It reports whether a
// document was created.
func Seed(ctx context.Context, s store.Store, documentID string, t *record.Taxonomy) (bool, error) {
	err := s.Create(ctx, documentID, Skeleton(t), SeedMessage)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrConflict):
		return false, nil
	default:
		return false, err
	}
}
