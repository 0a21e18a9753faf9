// Package classify turns a free-text message into a ClassificationRecord.
//
// Classification runs three stages in order: a marker heuristic that
// recognises pasted AI prompts, a cascade of external backends whose replies
// are repaired into records, and a link-based fallback that always succeeds.
package classify

import (
	"context"
	"fmt"
	"log/slog"

	boterrors "github.com/ygalaxyy/bookmarkbot/internal/errors"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// Sources reported in Result.Source besides a backend name.
const (
	SourceHeuristic = "heuristic"
	SourceFallback  = "fallback"
)

// Result is a classified record and the stage that produced it.
type Result struct {
	Record record.Record `json:"record"`
	Source string        `json:"source"`
}

// Classifier composes the classification stages.
type Classifier struct {
	links    *LinkExtractor
	cascade  *Cascade
	taxonomy *record.Taxonomy
	logger   *slog.Logger
}

// New creates a Classifier. cascade may be nil, in which case only the
// heuristic and the fallback run.
func New(links *LinkExtractor, cascade *Cascade, t *record.Taxonomy, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if t == nil {
		t = record.DefaultTaxonomy()
	}
	return &Classifier{
		links:    links,
		cascade:  cascade,
		taxonomy: t,
		logger:   logger.With("system", "classify"),
	}
}

// Links returns the extractor the classifier uses.
func (c *Classifier) Links() *LinkExtractor {
	return c.links
}

// Classify resolves text to a cleaned record. The only error is
// CLASSIFICATION_FAILED, returned when a stage panicked.
func (c *Classifier) Classify(ctx context.Context, text string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classification panicked", "panic", r)
			res = nil
			err = boterrors.NewClassificationFailed(fmt.Sprint(r))
		}
	}()

	if rec, ok := DetectPrompt(text); ok {
		c.logger.Info("prompt markers matched, skipping backends")
		return c.finish(rec, SourceHeuristic), nil
	}

	extracted := c.links.Extract(text)

	if c.cascade != nil {
		if rec, source, ok := c.cascade.Classify(ctx, text, extracted); ok {
			return c.finish(rec, source), nil
		}
	}

	c.logger.Warn("all backends failed, using fallback")
	return c.finish(c.links.Fallback(text), SourceFallback), nil
}

func (c *Classifier) finish(rec record.Record, source string) *Result {
	rec.Clean(c.taxonomy)
	return &Result{Record: rec, Source: source}
}
