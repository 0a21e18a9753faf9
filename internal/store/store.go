// Package store provides read-modify-write access to the published document
// with optimistic concurrency. Each driver returns an opaque version token on
// read and refuses a write whose expected version is stale.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict indicates the document changed since it was read, or
	// already exists on create.
	ErrConflict = errors.New("document version conflict")
	// ErrUnauthorized indicates the store rejected the credentials.
	ErrUnauthorized = errors.New("store access denied")
)

// Document is the content of the published document and the version token
// it was read at.
type Document struct {
	Content string
	Version string
}

// Store is the document store contract.
type Store interface {
	// Read returns the current content and version token.
	Read(ctx context.Context, id string) (*Document, error)
	// Write replaces the content if the stored version still equals
	// expectedVersion. message describes the change for stores that keep history.
	Write(ctx context.Context, id, content, expectedVersion, message string) error
	// Create stores a new document. Returns ErrConflict if it already exists.
	Create(ctx context.Context, id, content, message string) error
}
