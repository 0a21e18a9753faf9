package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ygalaxyy/bookmarkbot/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.BotError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Document is one stored document row. Version increases by one on every update.
type Document struct {
	ID        string
	Content   string
	Version   int64
	UpdatedAt int64
}

// Publication is one entry in the publication log.
type Publication struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Section    string `json:"section"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Forced     bool   `json:"forced"`
	CreatedAt  int64  `json:"created_at"`
}

// InsertDocument creates a document at version 1.
func InsertDocument(ctx context.Context, db *sql.DB, id, content string, now int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO documents (id, content, version, updated_at) VALUES (?, ?, 1, ?)`,
		id, content, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func GetDocument(ctx context.Context, db *sql.DB, id string) (*Document, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, content, version, updated_at FROM documents WHERE id = ?`, id)

	var d Document
	err := row.Scan(&d.ID, &d.Content, &d.Version, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &d, nil
}

// UpdateDocument replaces content only if the stored version still equals
// expectedVersion. It reports whether a row was updated.
func UpdateDocument(ctx context.Context, db *sql.DB, id, content string, expectedVersion, now int64) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE documents
		SET content = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, content, now, id, expectedVersion)
	if err != nil {
		return false, errors.NewInternal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n == 1, nil
}

// DocumentExists reports whether a document row exists.
func DocumentExists(ctx context.Context, db *sql.DB, id string) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return exists == 1, nil
}

// InsertPublication appends an entry to the publication log.
func InsertPublication(ctx context.Context, db *sql.DB, p *Publication) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO publications (id, document_id, section, name, url, forced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.DocumentID, p.Section, p.Name, p.URL, boolToInt(p.Forced), p.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// ListPublications returns log entries newest first, optionally filtered by
// section, together with the total count matching the filter.
func ListPublications(ctx context.Context, db *sql.DB, section string, limit, offset int) ([]Publication, int, error) {
	where := ""
	args := []any{}
	if section != "" {
		where = " WHERE section = ?"
		args = append(args, section)
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM publications"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, document_id, section, name, url, forced, created_at
		FROM publications` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []Publication
	for rows.Next() {
		p, err := ScanPublication(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return items, total, nil
}

// StreamPublications returns log rows oldest first for export. The caller
// must close the rows.
func StreamPublications(ctx context.Context, db *sql.DB, section string) (*sql.Rows, error) {
	query := `SELECT id, document_id, section, name, url, forced, created_at FROM publications`
	args := []any{}
	if section != "" {
		query += " WHERE section = ?"
		args = append(args, section)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanPublication scans one row selected with the publication column list.
func ScanPublication(rows *sql.Rows) (*Publication, error) {
	var p Publication
	var forced int
	if err := rows.Scan(&p.ID, &p.DocumentID, &p.Section, &p.Name, &p.URL, &forced, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Forced = forced != 0
	return &p, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
