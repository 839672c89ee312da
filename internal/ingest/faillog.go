// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/kmori/postlens/internal/models"
)

// FailedBatch is one JSONL record of the side failure log: the full
// contents of a batch whose flush failed, with enough context for an
// operator to replay it.
type FailedBatch struct {
	Timestamp time.Time      `json:"timestamp"`
	FileName  string         `json:"file_name"`
	Reason    string         `json:"reason"`
	Records   []*models.Post `json:"records"`
}

// FailureLog appends failed batches to a JSONL file, one JSON object
// per line. Failed batches are not retried within a run; operators
// inspect the log and resubmit manually.
type FailureLog struct {
	mu   sync.Mutex
	path string
}

// NewFailureLog creates a failure log writing to path. An empty path
// returns nil, which every method tolerates (logging disabled).
func NewFailureLog(path string) *FailureLog {
	if path == "" {
		return nil
	}
	return &FailureLog{path: path}
}

// Append writes one failed batch to the log. Opens the file lazily so
// a run with no failures never touches the filesystem.
func (l *FailureLog) Append(batch *FailedBatch) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dir := filepath.Dir(l.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create failure log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open failure log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal failed batch: %w", err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append to failure log: %w", err)
	}
	return nil
}
