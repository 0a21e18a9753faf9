// Package render turns a record into the HTML card spliced into the
// published document.
package render

import (
	"bytes"
	"crypto/rand"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmrenderer "github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

//go:embed templates/*.html
var templateFS embed.FS

// Placeholders for blank fields.
const (
	defaultName        = "Resource"
	defaultDescription = "No description."
	defaultPlatform    = "App"
)

// rawCloser matches the closing tag of the container prompt bodies are
// placed in, in any case and with or without attributes or a final '>'.
var rawCloser = regexp.MustCompile(`(?i)</xmp[^<>]*>?`)

// cardData is the template input. Every string is escaped by html/template
// except the fields typed template.HTML.
type cardData struct {
	ID          string
	Section     record.Section
	Name        string
	Description template.HTML
	URL         string
	Platform    string
	PromptBody  template.HTML
	Icon        string
	Color       string
}

// Renderer renders records with section-specific templates.
type Renderer struct {
	taxonomy  *record.Taxonomy
	templates map[string]*template.Template

	mu    sync.Mutex
	newID func() string
}

// New parses the embedded card templates.
func New(t *record.Taxonomy) *Renderer {
	if t == nil {
		t = record.DefaultTaxonomy()
	}

	files := map[string]string{
		"prompt": "templates/prompt.html",
		"app":    "templates/app.html",
		"link":   "templates/link.html",
	}
	templates := make(map[string]*template.Template, len(files))
	for name, file := range files {
		templates[name] = template.Must(template.New(name).ParseFS(templateFS, file))
	}

	entropy := ulid.Monotonic(rand.Reader, 0)
	return &Renderer{
		taxonomy:  t,
		templates: templates,
		newID: func() string {
			id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
			return "p-" + strings.ToLower(id[len(id)-8:])
		},
	}
}

// Render returns the card markup for rec.
func (r *Renderer) Render(rec record.Record) (string, error) {
	style := r.style(rec.Section)

	data := cardData{
		Section:     rec.Section,
		Name:        orDefault(rec.Name, defaultName),
		Description: Markdown(orDefault(rec.Description, defaultDescription)),
		URL:         orDefault(rec.URL, record.URLPlaceholder),
		Platform:    orDefault(rec.Platform, defaultPlatform),
		Icon:        style.Icon,
		Color:       style.Color,
	}

	name := "link"
	switch rec.Section {
	case record.SectionPrompts:
		name = "prompt"
		data.ID = r.id()
		data.PromptBody = template.HTML(stripCloser(rec.PromptBody))
	case record.SectionMobile:
		name = "app"
	}

	var buf bytes.Buffer
	if err := r.templates[name].ExecuteTemplate(&buf, "card", data); err != nil {
		return "", fmt.Errorf("render %s card: %w", name, err)
	}
	return buf.String(), nil
}

// style returns icon and color for a section, using the "ai" entry for
// sections the taxonomy does not know.
func (r *Renderer) style(s record.Section) record.Category {
	if c, ok := r.taxonomy.Lookup(s); ok {
		return c
	}
	c, _ := r.taxonomy.Lookup(record.SectionAI)
	return c
}

func (r *Renderer) id() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newID()
}

// stripCloser removes container closing tags until none remain, so a tag
// rebuilt from the pieces around a removed one is caught too.
func stripCloser(body string) string {
	for rawCloser.MatchString(body) {
		body = rawCloser.ReplaceAllString(body, "")
	}
	return body
}

var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		gmrenderer.WithNodeRenderers(util.Prioritized(escapedHTML{}, 100)),
	),
)

// Markdown converts description text to HTML. Raw HTML in the input is
// kept as escaped text.
func Markdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(strings.TrimSpace(buf.String()))
}

// escapedHTML renders inline and block HTML nodes as text.
type escapedHTML struct{}

func (escapedHTML) RegisterFuncs(reg gmrenderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindRawHTML, renderRawHTML)
	reg.Register(ast.KindHTMLBlock, renderHTMLBlock)
}

func renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
	return ast.WalkSkipChildren, nil
}

func renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.HTMLBlock)
	if entering {
		_, _ = w.WriteString("<p>")
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			_, _ = w.Write(util.EscapeHTML(line.Value(source)))
		}
		return ast.WalkContinue, nil
	}
	if n.HasClosure() {
		_, _ = w.Write(util.EscapeHTML(n.ClosureLine.Value(source)))
	}
	_, _ = w.WriteString("</p>\n")
	return ast.WalkContinue, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
