// Package ingest picks LR documents up from a local folder, such as the
// office scanner's output directory, and submits them for scanning.
package ingest

import "context"

// Result is the per-file ingest outcome.
type Result struct {
	Path         string `json:"path"`
	ScanID       string `json:"scan_id,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
	HashHex      string `json:"hash_hex,omitempty"`
	Err          string `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior callers depend on.
type Ingestor interface {
	IngestPath(ctx context.Context, path string) (Result, error)
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error)
}

var _ Ingestor = (*Inbox)(nil)
