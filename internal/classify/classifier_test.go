package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	boterrors "github.com/ygalaxyy/bookmarkbot/internal/errors"
	"github.com/ygalaxyy/bookmarkbot/internal/llm"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

func newTestClassifier(fs ...*fakeProvider) *Classifier {
	tax := record.DefaultTaxonomy()
	opts := DefaultCascadeOptions()
	opts.Backoff = 0
	return New(NewLinkExtractor(nil), NewCascade(providers(fs...), tax, opts, nil), tax, nil)
}

func TestClassify_PromptSkipsBackends(t *testing.T) {
	backend := &fakeProvider{name: "never", reply: `{"section": "ai"}`}
	c := newTestClassifier(backend)

	res, err := c.Classify(context.Background(), "Act as a senior Python reviewer. Review my code.")
	require.NoError(t, err)
	require.Equal(t, SourceHeuristic, res.Source)
	require.Equal(t, record.SectionPrompts, res.Record.Section)
	require.True(t, strings.HasPrefix(res.Record.PromptBody, "Act as a"))
	require.Equal(t, record.URLPlaceholder, res.Record.URL)
	require.Equal(t, 0, backend.calls)
}

func TestClassify_ActAsANeverCallsBackend(t *testing.T) {
	backend := &fakeProvider{name: "never", reply: `{"section": "ai"}`}
	c := newTestClassifier(backend)

	for _, text := range []string{
		"Act as a",
		"prefix https://example.com Act as a DBA",
		"line one\nline two\nAct as a translator and keep tone",
	} {
		_, err := c.Classify(context.Background(), text)
		require.NoError(t, err)
	}
	require.Equal(t, 0, backend.calls)
}

func TestClassify_FallbackGitHub(t *testing.T) {
	a, b := failing("a"), failing("b")
	c := newTestClassifier(a, b)

	res, err := c.Classify(context.Background(), "Check out https://github.com/acme/tool — does anything cool")
	require.NoError(t, err)
	require.Equal(t, SourceFallback, res.Source)
	require.Equal(t, record.SectionDev, res.Record.Section)
	require.Equal(t, "https://github.com/acme/tool", res.Record.URL)
	require.Equal(t, 100, res.Record.Confidence)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls)
}

func TestClassify_FallbackIdeas(t *testing.T) {
	c := newTestClassifier(failing("a"))

	text := "Remember to try sourdough with rye flour next weekend"
	res, err := c.Classify(context.Background(), text)
	require.NoError(t, err)
	require.Equal(t, record.SectionIdeas, res.Record.Section)
	require.Equal(t, 50, res.Record.Confidence)
	require.Equal(t, record.URLPlaceholder, res.Record.URL)
	require.Equal(t, "Remember to try sourdough with rye flour next week...", res.Record.Name)
	require.Equal(t, text, res.Record.Description)
}

func TestClassify_NoBackends(t *testing.T) {
	c := New(NewLinkExtractor(nil), nil, nil, nil)

	res, err := c.Classify(context.Background(), "https://shop.example/item")
	require.NoError(t, err)
	require.Equal(t, record.SectionIdeas, res.Record.Section)
	require.Equal(t, "https://shop.example/item", res.Record.URL)
}

func TestClassify_BackendRecordCleaned(t *testing.T) {
	backend := &fakeProvider{
		name:  "p",
		reply: `{"section": "Gadgets", "alternative": "DEV", "confidence": 140, "url": "", "prompt_body": "stray"}`,
	}
	c := newTestClassifier(backend)

	res, err := c.Classify(context.Background(), "a gadget https://gadget.io/x")
	require.NoError(t, err)
	require.Equal(t, "p", res.Source)
	require.Equal(t, record.SectionIdeas, res.Record.Section)
	require.Equal(t, record.SectionDev, res.Record.Alternative)
	require.Equal(t, 100, res.Record.Confidence)
	require.Equal(t, "https://gadget.io/x", res.Record.URL)
	require.Empty(t, res.Record.PromptBody)
}

func TestClassify_URLNeverBlank(t *testing.T) {
	replies := []string{
		`{"section": "dev", "url": "  "}`,
		`{"section": "dev", "url": null}`,
		`{"section": "dev"}`,
		`{'section': 'dev', 'url': None}`,
		`garbage`,
	}
	texts := []string{"", "   ", "no link at all here", "https://t.me/skip only"}

	for _, reply := range replies {
		for _, text := range texts {
			c := newTestClassifier(&fakeProvider{name: "p", reply: reply})
			res, err := c.Classify(context.Background(), text)
			require.NoError(t, err)
			require.NotEmpty(t, strings.TrimSpace(res.Record.URL), "reply=%q text=%q", reply, text)
		}
	}
}

type panicProvider struct{}

func (panicProvider) Name() string { return "panic" }

func (panicProvider) Complete(context.Context, string, llm.CompletionOpts) (string, error) {
	panic("boom")
}

func TestClassify_PanicReported(t *testing.T) {
	tax := record.DefaultTaxonomy()
	cascade := NewCascade([]llm.Provider{panicProvider{}}, tax, DefaultCascadeOptions(), nil)
	c := New(NewLinkExtractor(nil), cascade, tax, nil)

	res, err := c.Classify(context.Background(), "plain text")
	require.Nil(t, res)
	require.True(t, boterrors.Is(err, boterrors.ErrClassificationFailed))
}
