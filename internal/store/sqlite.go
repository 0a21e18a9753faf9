package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/ygalaxyy/bookmarkbot/internal/db"
	boterrors "github.com/ygalaxyy/bookmarkbot/internal/errors"
)

// SQLite keeps documents in the local database. The version token is the
// row's integer version.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a store over an initialized database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database, now: time.Now}
}

func (s *SQLite) Read(ctx context.Context, id string) (*Document, error) {
	d, err := db.GetDocument(ctx, s.db, id)
	if err != nil {
		if boterrors.Is(err, boterrors.ErrNotFound) {
			return nil, fmt.Errorf("read %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return &Document{Content: d.Content, Version: strconv.FormatInt(d.Version, 10)}, nil
}

func (s *SQLite) Write(ctx context.Context, id, content, expectedVersion, _ string) error {
	version, err := strconv.ParseInt(expectedVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("write %s: invalid version %q: %w", id, expectedVersion, ErrConflict)
	}

	ok, err := db.UpdateDocument(ctx, s.db, id, content, version, s.now().Unix())
	if err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	if ok {
		return nil
	}

	exists, err := db.DocumentExists(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("write %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("write %s at version %s: %w", id, expectedVersion, ErrConflict)
}

func (s *SQLite) Create(ctx context.Context, id, content, _ string) error {
	err := db.InsertDocument(ctx, s.db, id, content, s.now().Unix())
	if err == db.ErrUniqueConstraint {
		return fmt.Errorf("create %s: %w", id, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}
	return nil
}
