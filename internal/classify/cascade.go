package classify

import (
	"context"
	"log/slog"
	"time"

	boterrors "github.com/ygalaxyy/bookmarkbot/internal/errors"
	"github.com/ygalaxyy/bookmarkbot/internal/llm"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// CascadeOptions bounds each backend call.
type CascadeOptions struct {
	MaxInputChars int
	MaxTokens     int
	Temperature   float64
	Backoff       time.Duration
}

// DefaultCascadeOptions returns the limits used when config leaves them unset.
func DefaultCascadeOptions() CascadeOptions {
	return CascadeOptions{
		MaxInputChars: 8000,
		MaxTokens:     4000,
		Temperature:   0.1,
		Backoff:       time.Second,
	}
}

// Cascade asks each backend in order and stops at the first reply that
// repairs into an object.
type Cascade struct {
	providers []llm.Provider
	system    string
	opts      CascadeOptions
	logger    *slog.Logger

	// sleep waits between backends; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCascade creates a cascade over providers, strongest first.
func NewCascade(providers []llm.Provider, t *record.Taxonomy, opts CascadeOptions, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{
		providers: providers,
		system:    SystemPrompt(t),
		opts:      opts,
		logger:    logger.With("system", "cascade"),
		sleep:     sleepContext,
	}
}

// Len returns the number of configured backends.
func (c *Cascade) Len() int {
	return len(c.providers)
}

// Classify returns the first normalized record any backend produces and the
// name of that backend. ok is false when every backend failed.
func (c *Cascade) Classify(ctx context.Context, text, extractedURL string) (rec record.Record, source string, ok bool) {
	payload := UserPayload(text, extractedURL, c.opts.MaxInputChars)
	opts := llm.CompletionOpts{
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		System:      c.system,
	}

	for i, p := range c.providers {
		if ctx.Err() != nil {
			return record.Record{}, "", false
		}

		start := time.Now()
		reply, err := p.Complete(ctx, payload, opts)
		if err == nil {
			fields, parsed := Repair(reply)
			if parsed {
				c.logger.Info("backend succeeded", "backend", p.Name(), "duration", time.Since(start))
				return Normalize(fields, extractedURL), p.Name(), true
			}
			err = boterrors.NewParseFailure(excerpt(reply))
		} else {
			err = boterrors.NewBackend(p.Name(), err)
		}
		c.logger.Warn("backend failed", "backend", p.Name(), "error", err, "duration", time.Since(start))

		if i < len(c.providers)-1 && c.opts.Backoff > 0 {
			if err := c.sleep(ctx, c.opts.Backoff); err != nil {
				return record.Record{}, "", false
			}
		}
	}

	return record.Record{}, "", false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func excerpt(s string) string {
	return record.Truncate(s, 120, "...")
}
