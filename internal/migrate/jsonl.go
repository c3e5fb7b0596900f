// Package migrate moves planner documents in and out of a document store:
// JSONL backups of one collection, human-readable YAML/TOML exports, and
// promotion of a visitor's mirrored data into a signed-in account.
package migrate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/loveeagles/planner/internal/docstore"
)

// ImportOptions configures Import.
type ImportOptions struct {
	File   string        // input JSONL file
	Path   docstore.Path // destination collection
	DryRun bool          // parse and count without writing
	Backup bool          // copy the current collection to a JSONL file first
}

// Result counts what a migration did.
type Result struct {
	Imported      int
	Skipped       int
	BackupCreated string
	Errors        []string
}

// EncodeJSONL writes recs to w, one document per line.
func EncodeJSONL(w io.Writer, recs []docstore.Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode document %s: %w", rec.ID(), err)
		}
	}
	return nil
}

// DecodeJSONL reads one document per line from r.
func DecodeJSONL(r io.Reader) ([]docstore.Record, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	var recs []docstore.Record
	for line := 1; ; line++ {
		var rec docstore.Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return recs, nil
			}
			return nil, fmt.Errorf("invalid JSON at line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
}

// ReadJSONL reads a JSONL file.
func ReadJSONL(file string) ([]docstore.Record, error) {
	// #nosec G304 - controlled path from CLI
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer f.Close()
	return DecodeJSONL(f)
}

// ExportJSONL writes every document under path to file, replacing it
// atomically. It returns the number of documents written.
func ExportJSONL(ctx context.Context, store docstore.Store, path docstore.Path, file string) (int, error) {
	recs, err := store.List(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmpPath := file + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := EncodeJSONL(f, recs); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, file); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}
	return len(recs), nil
}

// Import upserts the documents of a JSONL file into opts.Path. Documents
// without an id are skipped and reported in Result.Errors.
func Import(ctx context.Context, store docstore.Store, opts ImportOptions) (*Result, error) {
	if err := opts.Path.Validate(); err != nil {
		return nil, err
	}
	recs, err := ReadJSONL(opts.File)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSONL: %w", err)
	}

	result := &Result{}
	if opts.Backup && !opts.DryRun {
		backup := opts.File + ".backup." + time.Now().Format("20060102-150405")
		if _, err := ExportJSONL(ctx, store, opts.Path, backup); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
		result.BackupCreated = backup
	}

	for i, rec := range recs {
		id := rec.ID()
		if id == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("document %d has no id", i+1))
			continue
		}
		if !opts.DryRun {
			if err := store.Set(ctx, opts.Path, id, rec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to write %s: %v", id, err))
				continue
			}
		}
		result.Imported++
	}
	return result, nil
}
