package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ygalaxyy/bookmarkbot/internal/classify"
	"github.com/ygalaxyy/bookmarkbot/internal/errors"
	"github.com/ygalaxyy/bookmarkbot/internal/publish"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// Classifier turns raw text into a record.
type Classifier interface {
	Classify(ctx context.Context, text string) (*classify.Result, error)
}

// Publisher writes a record into the document.
type Publisher interface {
	Publish(ctx context.Context, rec record.Record, force bool) *publish.Result
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	classifier Classifier
	links      *classify.LinkExtractor
	publisher  Publisher
	db         *sql.DB
	taxonomy   *record.Taxonomy
}

// NewHandlers creates a new Handlers instance. publisher and db may be nil;
// the tools needing them then report INVALID_REQUEST.
func NewHandlers(c Classifier, links *classify.LinkExtractor, p Publisher, db *sql.DB, t *record.Taxonomy) *Handlers {
	if t == nil {
		t = record.DefaultTaxonomy()
	}
	if links == nil {
		links = classify.NewLinkExtractor(nil)
	}
	return &Handlers{classifier: c, links: links, publisher: p, db: db, taxonomy: t}
}

// Request types for each tool

// ClassifyRequest represents the arguments for classify.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// PublishRequest represents the arguments for publish.
type PublishRequest struct {
	Text    string `json:"text"`
	Section string `json:"section,omitempty"`
	URL     string `json:"url,omitempty"`
	Force   bool   `json:"force,omitempty"`
}

// ExtractURLRequest represents the arguments for extract_url.
type ExtractURLRequest struct {
	Text string `json:"text"`
}

// HistoryRequest represents the arguments for history.
type HistoryRequest struct {
	Section string `json:"section,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// PublishOutput is the result of the publish tool.
type PublishOutput struct {
	Record  record.Record   `json:"record"`
	Source  string          `json:"source"`
	Outcome publish.Outcome `json:"outcome"`
	ID      string          `json:"id,omitempty"`
}

// HandleClassify handles the classify tool call.
func (h *Handlers) HandleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClassifyRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := requireText("text", input.Text); err != nil {
		return errorResult(err), nil
	}

	result, err := h.classifier.Classify(ctx, input.Text)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePublish classifies text, applies the overrides and publishes.
// A duplicate is reported as an outcome, not as an error.
func (h *Handlers) HandlePublish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PublishRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := requireText("text", input.Text); err != nil {
		return errorResult(err), nil
	}
	if h.publisher == nil {
		return errorResult(errors.NewInvalidRequest("publishing is not configured")), nil
	}

	var section record.Section
	if input.Section != "" {
		s, ok := h.taxonomy.Parse(input.Section)
		if !ok {
			return errorResult(errors.NewInvalidRequest("unknown section: " + input.Section)), nil
		}
		section = s
	}

	result, err := h.classifier.Classify(ctx, input.Text)
	if err != nil {
		return errorResult(err), nil
	}

	rec := result.Record
	if section != "" {
		rec.Section = section
	}
	if input.URL != "" {
		rec.URL = input.URL
	}
	rec.Clean(h.taxonomy)

	res := h.publisher.Publish(ctx, rec, input.Force)
	switch res.Outcome {
	case publish.OutcomeOK, publish.OutcomeDuplicate:
		return successResult(PublishOutput{
			Record:  rec,
			Source:  result.Source,
			Outcome: res.Outcome,
			ID:      res.ID,
		})
	default:
		return errorResult(res.Error), nil
	}
}

// HandleExtractURL handles the extract_url tool call.
func (h *Handlers) HandleExtractURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExtractURLRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	url := h.links.Extract(input.Text)
	return successResult(map[string]any{
		"url":   url,
		"found": url != record.URLAbsent,
	})
}

// HandleHistory handles the history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if h.db == nil {
		return errorResult(errors.NewInvalidRequest("publication log is not configured")), nil
	}

	result, err := publish.History(ctx, h.db, publish.HistoryInput{
		Section: input.Section,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var bErr *errors.BotError
	if !stderrors.As(err, &bErr) || bErr == nil {
		bErr = errors.NewInternal(err)
	}

	errorObj := map[string]any{
		"code":    bErr.Code,
		"message": bErr.Message,
		"status":  bErr.Status,
	}
	if bErr.Code != errors.ErrInternal && bErr.Details != nil {
		errorObj["details"] = bErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
