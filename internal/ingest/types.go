// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

// Package ingest implements the CSV bulk-ingestion pipeline: streaming
// decode, row validation, duplicate resolution against the store, and
// batched bulk commits with idempotent conflict-skip semantics.
package ingest

import (
	"context"
	"fmt"

	"github.com/kmori/postlens/internal/models"
)

// CSV column names. influencer_id and post_id are required; the rest
// are optional.
const (
	ColInfluencerID = "influencer_id"
	ColPostID       = "post_id"
	ColShortcode    = "shortcode"
	ColLikes        = "likes"
	ColComments     = "comments"
	ColThumbnail    = "thumbnail"
	ColText         = "text"
	ColPostDate     = "post_date"
)

// RequiredColumns lists the header columns an upload must carry.
var RequiredColumns = []string{ColInfluencerID, ColPostID}

// RawRow is one decoded CSV record keyed by header column name.
// Ephemeral: produced by the stream decoder, consumed once by the
// transformer, never persisted.
type RawRow map[string]string

// blank reports whether every field of the row is empty.
func (r RawRow) blank() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

// Store is the storage capability the pipeline depends on: an
// existence lookup by external identifier set, and a bulk insert that
// skips uniqueness conflicts.
type Store interface {
	ExistingPostIDs(ctx context.Context, postIDs []string) (map[string]struct{}, error)
	InsertPostsBatch(ctx context.Context, posts []*models.Post) (inserted, duplicates int, err error)
}

// ValidationError marks a row that failed required-field validation.
// Always recoverable: the row is counted as an error and dropped, the
// stream continues.
type ValidationError struct {
	Line   int // 1-based line in the source file, header included
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %s", e.Line, e.Field, e.Reason)
}

// DecodeError marks a stream-level failure: the source cannot be
// parsed as CSV at all. Fatal to the run; no ImportResult is produced.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode source as CSV: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
