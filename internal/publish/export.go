package publish

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ygalaxyy/bookmarkbot/internal/db"
	"github.com/ygalaxyy/bookmarkbot/internal/errors"
)

// ExportSchemaVersion is written in the header line of every export.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path    string // optional, default: <dir>/publications-<timestamp>.jsonl
	Section string // optional filter
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	BookmarkbotExport bool   `json:"_bookmarkbot_export"`
	SchemaVersion     string `json:"schema_version"`
	ExportedAt        int64  `json:"exported_at"`
}

// Export writes the publication log, oldest first, to a JSONL file directly
// inside dir. The file is written under a temporary name and renamed into
// place, so an existing export survives a failed run.
func Export(ctx context.Context, database *sql.DB, dir string, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		exportPath = filepath.Join(dir, defaultExportName(input.Section, now))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}
	if err := ValidateExportPath(exportPath, dir); err != nil {
		return nil, err
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := createNoFollow(tempPath)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	if err := enc.Encode(ExportHeader{
		BookmarkbotExport: true,
		SchemaVersion:     ExportSchemaVersion,
		ExportedAt:        now.Unix(),
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.StreamPublications(ctx, database, strings.ToLower(strings.TrimSpace(input.Section)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := db.ScanPublication(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := enc.Encode(p); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted after validation.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportName is publications-<timestamp>.jsonl, or
// publications-<section>-<timestamp>.jsonl when filtered.
func defaultExportName(section string, now time.Time) string {
	name := "publications"
	if s := sanitizeForFilename(strings.ToLower(section)); s != "" {
		name += "-" + s
	}
	return name + "-" + now.Format("2006-01-02T150405") + ExportExt
}

// sanitizeForFilename keeps letters, digits, '-' and '_'.
func sanitizeForFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
