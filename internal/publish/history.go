package publish

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/db"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Section string // optional filter
	Limit   int    // default: 20, max: 100
	Offset  int    // default: 0
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []db.Publication `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// History lists logged publications, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	section := strings.ToLower(strings.TrimSpace(input.Section))

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := max(input.Offset, 0)

	items, total, err := db.ListPublications(ctx, database, section, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.Publication{}
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
