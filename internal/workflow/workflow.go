// Package workflow drives a classified record to publication, asking the
// user to pick a category, supply a missing link or confirm a duplicate when
// needed. Conversation state lives in memory, one session per chat.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/classify"
	"github.com/ygalaxyy/bookmarkbot/internal/publish"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// Choice tokens carried by buttons.
const (
	TokenCategoryPrefix = "category:"
	TokenDuplicateYes   = "duplicate:yes"
	TokenDuplicateNo    = "duplicate:no"
	TokenCancel         = "cancel"
)

// MinContentChars is the shortest message that is classified.
const MinContentChars = 5

// ConfidenceThreshold is the confidence below which a record with a distinct
// alternative is put to the user.
const ConfidenceThreshold = 80

// Button is one choice offered to the user.
type Button struct {
	Text  string
	Token string
}

// Transport sends and edits chat messages.
type Transport interface {
	Send(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, buttons [][]Button) error
}

// Classifier turns raw text into a record.
type Classifier interface {
	Classify(ctx context.Context, text string) (*classify.Result, error)
}

// Publisher writes a record into the document.
type Publisher interface {
	Publish(ctx context.Context, rec record.Record, force bool) *publish.Result
}

// Options configures a Workflow.
type Options struct {
	Taxonomy *record.Taxonomy
	// SelfDomains are URL fragments treated as a missing link.
	SelfDomains []string
	Logger      *slog.Logger
}

// Workflow is the publication state machine.
type Workflow struct {
	sessions    *Sessions
	classifier  Classifier
	publisher   Publisher
	transport   Transport
	taxonomy    *record.Taxonomy
	selfDomains []string
	logger      *slog.Logger
}

// New creates a workflow.
func New(c Classifier, p Publisher, t Transport, opts Options) *Workflow {
	tax := opts.Taxonomy
	if tax == nil {
		tax = record.DefaultTaxonomy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	domains := make([]string, 0, len(opts.SelfDomains))
	for _, d := range opts.SelfDomains {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return &Workflow{
		sessions:    NewSessions(),
		classifier:  c,
		publisher:   p,
		transport:   t,
		taxonomy:    tax,
		selfDomains: domains,
		logger:      logger.With("system", "workflow"),
	}
}

// Sessions exposes the session store.
func (w *Workflow) Sessions() *Sessions {
	return w.sessions
}

// HandleText routes a text message (or media caption) from chatID.
func (w *Workflow) HandleText(ctx context.Context, chatID int64, text string) {
	sess := w.sessions.Get(chatID)
	switch sess.Stage {
	case StageIdle:
		w.start(ctx, chatID, text)
	case StageAwaitingLink:
		w.receiveLink(ctx, chatID, sess, text)
	default:
		if sess.Pending == nil {
			w.stale(ctx, chatID, 0)
			return
		}
		if isCancel(text) {
			w.sessions.Clear(chatID)
			w.send(ctx, chatID, "🙅 Cancelled.", nil)
			return
		}
		w.send(ctx, chatID, "👆 Pick one of the options above, or send cancel.", nil)
	}
}

// HandleChoice routes a button press on messageID.
func (w *Workflow) HandleChoice(ctx context.Context, chatID int64, messageID int, token string) {
	sess := w.sessions.Get(chatID)

	switch {
	case token == TokenCancel:
		w.sessions.Clear(chatID)
		w.edit(ctx, chatID, messageID, "🙅 Cancelled.", nil)

	case strings.HasPrefix(token, TokenCategoryPrefix):
		if sess.Stage != StageAwaitingCategoryChoice || sess.Pending == nil {
			w.stale(ctx, chatID, messageID)
			return
		}
		section, ok := w.taxonomy.Parse(strings.TrimPrefix(token, TokenCategoryPrefix))
		if !ok {
			w.logger.Warn("unknown category token", "chat_id", chatID, "token", token)
			w.stale(ctx, chatID, messageID)
			return
		}
		rec := *sess.Pending
		rec.Section = section
		rec.Clean(w.taxonomy)
		w.logger.Info("category chosen", "chat_id", chatID, "section", section)
		w.edit(ctx, chatID, messageID, fmt.Sprintf("👌 Chose %s.", strings.ToUpper(string(section))), nil)
		w.afterCategory(ctx, chatID, messageID, rec)

	case token == TokenDuplicateYes, token == TokenDuplicateNo:
		if sess.Stage != StageAwaitingDuplicateDecision || sess.Pending == nil {
			w.stale(ctx, chatID, messageID)
			return
		}
		if token == TokenDuplicateNo {
			w.sessions.Clear(chatID)
			w.edit(ctx, chatID, messageID, "🙅 Cancelled.", nil)
			return
		}
		w.edit(ctx, chatID, messageID, "🚀 Force publishing...", nil)
		w.attempt(ctx, chatID, messageID, *sess.Pending, true)

	default:
		w.logger.Warn("unknown choice token", "chat_id", chatID, "token", token)
		w.stale(ctx, chatID, messageID)
	}
}

func (w *Workflow) start(ctx context.Context, chatID int64, text string) {
	if len([]rune(strings.TrimSpace(text))) < MinContentChars {
		return
	}

	status := w.send(ctx, chatID, "🧠 Analyzing...", nil)

	res, err := w.classifier.Classify(ctx, text)
	if err != nil {
		w.logger.Error("classification failed", "chat_id", chatID, "error", err)
		w.edit(ctx, chatID, status, "❌ Analysis failed. Please send it again.", nil)
		return
	}
	rec := res.Record
	w.logger.Info("classified", "chat_id", chatID, "source", res.Source,
		"section", rec.Section, "alternative", rec.Alternative, "confidence", rec.Confidence)

	if rec.Confidence < ConfidenceThreshold && rec.Ambiguous() {
		w.sessions.Hold(chatID, StageAwaitingCategoryChoice, rec)
		w.edit(ctx, chatID, status,
			fmt.Sprintf("🤔 Not sure (%d%%)\nItem: %s", rec.Confidence, rec.Name),
			[][]Button{
				{w.categoryButton(rec.Section), w.categoryButton(rec.Alternative)},
				{{Text: "❌ Cancel", Token: TokenCancel}},
			})
		return
	}

	w.afterCategory(ctx, chatID, status, rec)
}

// afterCategory applies the link gate and publishes.
func (w *Workflow) afterCategory(ctx context.Context, chatID int64, status int, rec record.Record) {
	if w.NeedsLink(rec) {
		w.sessions.Hold(chatID, StageAwaitingLink, rec)
		w.edit(ctx, chatID, status,
			fmt.Sprintf("🧐 %s [%s]\n⚠️ Send me the link, or # for none.", rec.Name, strings.ToUpper(string(rec.Section))),
			nil)
		return
	}
	w.edit(ctx, chatID, status, fmt.Sprintf("🚀 Publishing %s...", rec.Name), nil)
	w.attempt(ctx, chatID, status, rec, false)
}

func (w *Workflow) receiveLink(ctx context.Context, chatID int64, sess Session, text string) {
	if sess.Pending == nil {
		w.stale(ctx, chatID, 0)
		return
	}
	if isCancel(text) {
		w.sessions.Clear(chatID)
		w.send(ctx, chatID, "🙅 Cancelled.", nil)
		return
	}

	rec := *sess.Pending
	rec.URL = strings.TrimSpace(text)
	if rec.URL == "" {
		rec.URL = record.URLPlaceholder
	}

	status := w.send(ctx, chatID, fmt.Sprintf("🔗 Link accepted. Publishing %s...", rec.Name), nil)
	w.attempt(ctx, chatID, status, rec, false)
}

// attempt calls the gateway and moves the session to its next stage.
func (w *Workflow) attempt(ctx context.Context, chatID int64, status int, rec record.Record, force bool) {
	res := w.publisher.Publish(ctx, rec, force)
	logger := w.logger.With("chat_id", chatID, "section", rec.Section, "outcome", res.Outcome)

	switch res.Outcome {
	case publish.OutcomeOK:
		w.sessions.Clear(chatID)
		logger.Info("publish finished", "id", res.ID)
		text := fmt.Sprintf("✅ Added %s to %s!", rec.Name, strings.ToUpper(string(rec.Section)))
		if force {
			text = fmt.Sprintf("✅ Added %s (forced)!", rec.Name)
		}
		w.edit(ctx, chatID, status, text, nil)

	case publish.OutcomeDuplicate:
		w.sessions.Hold(chatID, StageAwaitingDuplicateDecision, rec)
		logger.Info("publish needs confirmation")
		w.edit(ctx, chatID, status, "⚠️ Already published. Add anyway?", [][]Button{
			{{Text: "✅ Add", Token: TokenDuplicateYes}},
			{{Text: "❌ Cancel", Token: TokenDuplicateNo}},
		})

	case publish.OutcomeMarkerMissing:
		w.sessions.Clear(chatID)
		logger.Error("publish failed", "error", res.Error)
		w.edit(ctx, chatID, status,
			fmt.Sprintf("❌ The document has no %s marker.", strings.ToUpper(string(rec.Section))), nil)

	default:
		w.sessions.Clear(chatID)
		logger.Error("publish failed", "error", res.Error)
		w.edit(ctx, chatID, status, "❌ Store error. Send the item again to retry.", nil)
	}
}

// NeedsLink reports whether rec must wait for a link before publishing.
func (w *Workflow) NeedsLink(rec record.Record) bool {
	if w.taxonomy.LinkOptional(rec.Section) {
		return false
	}
	u := strings.TrimSpace(rec.URL)
	switch u {
	case "", record.URLAbsent, record.URLPlaceholder, "None":
		return true
	}
	for _, d := range w.selfDomains {
		if strings.Contains(u, d) {
			return true
		}
	}
	return false
}

func (w *Workflow) stale(ctx context.Context, chatID int64, messageID int) {
	w.sessions.Clear(chatID)
	w.logger.Warn("stale session reset", "chat_id", chatID)
	const text = "❌ That request expired. Please send the item again."
	if messageID != 0 {
		w.edit(ctx, chatID, messageID, text, nil)
		return
	}
	w.send(ctx, chatID, text, nil)
}

func (w *Workflow) categoryButton(s record.Section) Button {
	return Button{Text: "📂 " + strings.ToUpper(string(s)), Token: TokenCategoryPrefix + string(s)}
}

// send posts a message and returns its id, or 0 if the transport failed.
func (w *Workflow) send(ctx context.Context, chatID int64, text string, buttons [][]Button) int {
	id, err := w.transport.Send(ctx, chatID, text, buttons)
	if err != nil {
		w.logger.Error("send failed", "chat_id", chatID, "error", err)
		return 0
	}
	return id
}

// edit replaces the text of messageID, falling back to a new message when
// there is nothing to edit.
func (w *Workflow) edit(ctx context.Context, chatID int64, messageID int, text string, buttons [][]Button) {
	if messageID == 0 {
		w.send(ctx, chatID, text, buttons)
		return
	}
	if err := w.transport.Edit(ctx, chatID, messageID, text, buttons); err != nil {
		w.logger.Error("edit failed", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func isCancel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "cancel" || t == "/cancel"
}
