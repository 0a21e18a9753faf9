package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/ygalaxyy/bookmarkbot/internal/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDocument_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := InsertDocument(ctx, db, "index.html", "<html></html>", 100); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}

	d, err := GetDocument(ctx, db, "index.html")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if d.Content != "<html></html>" || d.Version != 1 || d.UpdatedAt != 100 {
		t.Errorf("GetDocument() = %+v", d)
	}

	if err := InsertDocument(ctx, db, "index.html", "again", 101); err != ErrUniqueConstraint {
		t.Errorf("second InsertDocument() error = %v, want ErrUniqueConstraint", err)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	_, err := GetDocument(context.Background(), openTestDB(t), "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetDocument() error = %v, want NOT_FOUND", err)
	}
}

func TestUpdateDocument_VersionCheck(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := InsertDocument(ctx, db, "doc", "v1", 1); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}

	ok, err := UpdateDocument(ctx, db, "doc", "v2", 1, 2)
	if err != nil || !ok {
		t.Fatalf("UpdateDocument(version 1) = %v, %v; want true, nil", ok, err)
	}

	// Stale version no longer matches.
	ok, err = UpdateDocument(ctx, db, "doc", "v3", 1, 3)
	if err != nil || ok {
		t.Fatalf("UpdateDocument(stale) = %v, %v; want false, nil", ok, err)
	}

	d, err := GetDocument(ctx, db, "doc")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if d.Content != "v2" || d.Version != 2 {
		t.Errorf("document = %+v, want content v2 at version 2", d)
	}

	exists, err := DocumentExists(ctx, db, "doc")
	if err != nil || !exists {
		t.Errorf("DocumentExists(doc) = %v, %v", exists, err)
	}
	exists, err = DocumentExists(ctx, db, "nope")
	if err != nil || exists {
		t.Errorf("DocumentExists(nope) = %v, %v", exists, err)
	}
}

func TestListPublications(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for i := range 5 {
		section := "dev"
		if i%2 == 1 {
			section = "ai"
		}
		p := &Publication{
			ID:         fmt.Sprintf("01J%023d", i),
			DocumentID: "index.html",
			Section:    section,
			Name:       fmt.Sprintf("entry %d", i),
			URL:        fmt.Sprintf("https://example.com/%d", i),
			Forced:     i == 4,
			CreatedAt:  int64(1000 + i),
		}
		if err := InsertPublication(ctx, db, p); err != nil {
			t.Fatalf("InsertPublication(%d) error = %v", i, err)
		}
	}

	items, total, err := ListPublications(ctx, db, "", 2, 0)
	if err != nil {
		t.Fatalf("ListPublications() error = %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("total = %d, len = %d; want 5, 2", total, len(items))
	}
	if items[0].Name != "entry 4" || !items[0].Forced {
		t.Errorf("items[0] = %+v, want newest forced entry", items[0])
	}

	items, total, err = ListPublications(ctx, db, "ai", 10, 0)
	if err != nil {
		t.Fatalf("ListPublications(ai) error = %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("ai total = %d, len = %d; want 2, 2", total, len(items))
	}
	for _, it := range items {
		if it.Section != "ai" {
			t.Errorf("section = %q, want ai", it.Section)
		}
	}

	items, _, err = ListPublications(ctx, db, "", 10, 4)
	if err != nil {
		t.Fatalf("ListPublications(offset) error = %v", err)
	}
	if len(items) != 1 || items[0].Name != "entry 0" {
		t.Errorf("offset page = %+v", items)
	}
}

func TestStreamPublications(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for i, section := range []string{"dev", "ai", "dev"} {
		p := &Publication{
			ID:         fmt.Sprintf("01K%023d", i),
			DocumentID: "index.html",
			Section:    section,
			Name:       fmt.Sprintf("entry %d", i),
			CreatedAt:  int64(2000 - i),
		}
		if err := InsertPublication(ctx, db, p); err != nil {
			t.Fatalf("InsertPublication(%d) error = %v", i, err)
		}
	}

	rows, err := StreamPublications(ctx, db, "dev")
	if err != nil {
		t.Fatalf("StreamPublications() error = %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		p, err := ScanPublication(rows)
		if err != nil {
			t.Fatalf("ScanPublication() error = %v", err)
		}
		names = append(names, p.Name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err() = %v", err)
	}
	if len(names) != 2 || names[0] != "entry 2" || names[1] != "entry 0" {
		t.Errorf("names = %v, want oldest first [entry 2 entry 0]", names)
	}
}
