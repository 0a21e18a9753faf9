package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

func newTestRenderer() *Renderer {
	r := New(nil)
	r.newID = func() string { return "p-test" }
	return r
}

func TestRender_LinkCardEscapes(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(record.Record{
		Section:     record.SectionDev,
		Name:        `<script>alert(1)</script>`,
		Description: "A *fast* tool",
		URL:         "https://github.com/acme/tool",
	})
	require.NoError(t, err)

	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "&lt;script&gt;")
	require.Contains(t, out, "<em>fast</em>")
	require.Contains(t, out, `href="https://github.com/acme/tool"`)
	require.Contains(t, out, "fa-flask")
	require.Contains(t, out, "emerald")
	require.Contains(t, out, "OPEN RESOURCE")
}

func TestRender_DescriptionEscapesRawHTML(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(record.Record{
		Section:     record.SectionAI,
		Name:        "Model",
		Description: `<img src=x onerror=alert(1)> nice`,
		URL:         "#",
	})
	require.NoError(t, err)
	require.NotContains(t, out, "<img")
	require.Contains(t, out, "&lt;img src=x onerror=alert(1)&gt; nice")
}

func TestMarkdown_KeepsAngleBracketText(t *testing.T) {
	got := string(Markdown("Generic container for <T> values & <b>bold</b>"))
	require.Equal(t, "<p>Generic container for &lt;T&gt; values &amp; &lt;b&gt;bold&lt;/b&gt;</p>", got)

	got = string(Markdown("<div>\nhidden\n</div>"))
	require.NotContains(t, got, "<div>")
	require.Contains(t, got, "&lt;div&gt;")
	require.Contains(t, got, "hidden")

	require.Equal(t, "<p>A <em>fast</em> tool</p>", string(Markdown("A *fast* tool")))
}

func TestRender_UnsafeURLNeutralized(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(record.Record{
		Section: record.SectionDev,
		Name:    "x",
		URL:     "javascript:alert(1)",
	})
	require.NoError(t, err)
	require.NotContains(t, out, "javascript:")
}

func TestRender_PromptCardVerbatim(t *testing.T) {
	r := newTestRenderer()

	body := "Act as a <Role>reviewer</Role>\n  keep \"quotes\" & spacing</xmp><b>"
	out, err := r.Render(record.Record{
		Section:    record.SectionPrompts,
		Name:       "Reviewer",
		URL:        "#",
		PromptBody: body,
	})
	require.NoError(t, err)

	require.Contains(t, out, `id="p-test-text"`)
	require.Contains(t, out, "<xmp>Act as a <Role>reviewer</Role>\n  keep \"quotes\" & spacing<b></xmp>")
	require.Equal(t, 1, strings.Count(out, "</xmp>"))
	require.Contains(t, out, "AI PROMPT")
	require.Contains(t, out, "amber")
}

func TestRender_AppCard(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(record.Record{
		Section:  record.SectionMobile,
		Name:     "Notes",
		URL:      "https://play.example/app",
		Platform: "Android",
	})
	require.NoError(t, err)
	require.Contains(t, out, "Android")
	require.Contains(t, out, "DOWNLOAD")

	out, err = r.Render(record.Record{Section: record.SectionMobile, URL: "#"})
	require.NoError(t, err)
	require.Contains(t, out, defaultPlatform)
	require.Contains(t, out, defaultName)
	require.Contains(t, out, defaultDescription)
}

func TestRender_UnknownSectionUsesAIStyle(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(record.Record{Section: "mystery", Name: "x", URL: "#"})
	require.NoError(t, err)
	require.Contains(t, out, "fa-robot")
	require.Contains(t, out, "purple")
}

func TestNewRenderer_IDsUnique(t *testing.T) {
	r := New(nil)
	seen := make(map[string]bool)
	for range 50 {
		id := r.id()
		require.True(t, strings.HasPrefix(id, "p-"))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRender_PromptCloserVariantsStripped(t *testing.T) {
	r := newTestRenderer()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"upper case", "a</XMP><script>x()</script>", "<xmp>a<script>x()</script></xmp>"},
		{"nested", "a</xm</xmp>p><img src=x onerror=y>", "<xmp>a<img src=x onerror=y></xmp>"},
		{"whitespace and attributes", "a</xmp >b</Xmp foo=1>c", "<xmp>abc</xmp>"},
		{"unterminated", "a</xmp", "<xmp>a</xmp>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(record.Record{
				Section:    record.SectionPrompts,
				Name:       "p",
				URL:        "#",
				PromptBody: tt.body,
			})
			require.NoError(t, err)
			require.Contains(t, out, tt.want)
			require.Equal(t, 1, strings.Count(strings.ToLower(out), "</xmp"))
		})
	}
}
