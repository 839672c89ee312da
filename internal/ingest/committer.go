// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"context"
	"fmt"

	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/metrics"
	"github.com/kmori/postlens/internal/models"
)

// Committer persists resolved batches with a single bulk insert.
type Committer struct {
	store Store
}

// NewCommitter creates a batch committer.
func NewCommitter(store Store) *Committer {
	return &Committer{store: store}
}

// Commit bulk-inserts records with conflict-skip semantics and returns
// the list of records attempted as new.
//
// The returned slice is the input list, not a store-reported count:
// the conflict clause may absorb a handful of rows that raced in from
// a concurrent import, and the caller's accounting stays deterministic
// regardless. A failed bulk operation is a single error for the whole
// batch; no partial success is reported.
func (c *Committer) Commit(ctx context.Context, records []*models.Post) ([]*models.Post, error) {
	if len(records) == 0 {
		return nil, nil
	}

	inserted, duplicates, err := c.store.InsertPostsBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("bulk insert of %d records failed: %w", len(records), err)
	}

	if duplicates > 0 {
		// Rows the resolver missed because they were written between
		// its lookup and this commit.
		logging.Debug().
			Int("inserted", inserted).
			Int("conflict_skipped", duplicates).
			Msg("Conflict clause absorbed concurrent duplicates")
	}
	metrics.ImportBatchSize.Observe(float64(len(records)))

	return records, nil
}
