// Package publish splices rendered records into the published document.
//
// A publish is a single read-modify-write: read the document and its version
// token, refuse duplicates and unknown sections, insert the rendered card in
// front of the section's marker, and write back conditionally. Failures are
// reported as outcomes and never retried here.
package publish

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ygalaxyy/bookmarkbot/internal/db"
	"github.com/ygalaxyy/bookmarkbot/internal/errors"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
	"github.com/ygalaxyy/bookmarkbot/internal/store"
)

// Outcome is the terminal result of a publish attempt.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeMarkerMissing Outcome = "marker_missing"
	OutcomeStoreError    Outcome = "store_error"
)

// Renderer produces the markup for one record.
type Renderer interface {
	Render(rec record.Record) (string, error)
}

// Result describes a publish attempt.
type Result struct {
	Outcome Outcome `json:"outcome"`
	// ID is the publication log id, set on OutcomeOK.
	ID string `json:"id,omitempty"`
	// Error carries the typed failure for MarkerMissing and StoreError.
	Error *errors.BotError `json:"-"`
}

// Gateway publishes records into one document.
type Gateway struct {
	store      store.Store
	renderer   Renderer
	documentID string
	log        *sql.DB
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// Options configures a Gateway.
type Options struct {
	DocumentID string
	// Log, when set, receives one publications row per successful publish.
	Log    *sql.DB
	Logger *slog.Logger
}

// NewGateway creates a gateway over s.
func NewGateway(s store.Store, r Renderer, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	entropy := ulid.Monotonic(rand.Reader, 0)
	return &Gateway{
		store:      s,
		renderer:   r,
		documentID: opts.DocumentID,
		log:        opts.Log,
		logger:     logger.With("system", "publish"),
		now:        time.Now,
		newID: func() string {
			return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
		},
	}
}

// DocumentID returns the document the gateway writes to.
func (g *Gateway) DocumentID() string {
	return g.documentID
}

// Publish inserts rec into the document. With force set the duplicate check
// is skipped.
func (g *Gateway) Publish(ctx context.Context, rec record.Record, force bool) *Result {
	logger := g.logger.With("section", rec.Section, "url", rec.URL, "force", force)

	doc, err := g.store.Read(ctx, g.documentID)
	if err != nil {
		logger.Error("read document failed", "error", err)
		return &Result{Outcome: OutcomeStoreError, Error: errors.NewStore(err)}
	}

	if !force && IsDuplicate(doc.Content, rec.URL) {
		logger.Info("duplicate url")
		return &Result{Outcome: OutcomeDuplicate}
	}

	marker := rec.Marker()
	if !strings.Contains(doc.Content, marker) {
		logger.Error("marker missing", "marker", marker)
		return &Result{Outcome: OutcomeMarkerMissing, Error: errors.NewMarkerMissing(marker)}
	}

	card, err := g.renderer.Render(rec)
	if err != nil {
		logger.Error("render failed", "error", err)
		return &Result{Outcome: OutcomeStoreError, Error: errors.NewInternal(err)}
	}

	content := Splice(doc.Content, marker, card)
	if err := g.store.Write(ctx, g.documentID, content, doc.Version, CommitMessage(rec)); err != nil {
		logger.Error("write document failed", "error", err)
		return &Result{Outcome: OutcomeStoreError, Error: errors.NewStore(err)}
	}

	id := g.newID()
	g.record(ctx, id, rec, force)
	logger.Info("published", "id", id)

	return &Result{Outcome: OutcomeOK, ID: id}
}

// record appends to the publication log. The document is already written,
// so a log failure is only reported.
func (g *Gateway) record(ctx context.Context, id string, rec record.Record, force bool) {
	if g.log == nil {
		return
	}
	err := db.InsertPublication(ctx, g.log, &db.Publication{
		ID:         id,
		DocumentID: g.documentID,
		Section:    string(rec.Section),
		Name:       rec.Name,
		URL:        rec.URL,
		Forced:     force,
		CreatedAt:  g.now().Unix(),
	})
	if err != nil {
		g.logger.Warn("publication log insert failed", "id", id, "error", err)
	}
}

// IsDuplicate reports whether a concrete url, without trailing slashes,
// already occurs in content.
func IsDuplicate(content, url string) bool {
	if !record.IsConcreteURL(url) {
		return false
	}
	clean := strings.TrimRight(strings.TrimSpace(url), "/")
	return clean != "" && strings.Contains(content, clean)
}

// Splice inserts card immediately before the first occurrence of marker.
func Splice(content, marker, card string) string {
	return strings.Replace(content, marker, card+"\n"+marker, 1)
}

// CommitMessage describes a publish for stores that keep history.
func CommitMessage(rec record.Record) string {
	return fmt.Sprintf("Add: %s [%s] via bookmarkbot", rec.Name, strings.ToUpper(string(rec.Section)))
}
