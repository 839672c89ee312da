// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/models"
)

// GuardedStore wraps a Store with a circuit breaker so a dead storage
// engine fails batches fast instead of timing out row by row.
//
// An open breaker surfaces as an ordinary store error: the pipeline
// counts the batch as failed and the run continues, which is exactly
// the per-batch failure contract. The breaker recovers on its own once
// probes succeed.
type GuardedStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker[any]
}

// NewGuardedStore wraps store with a circuit breaker. The breaker
// opens after five consecutive failures and probes again after 30
// seconds.
func NewGuardedStore(store Store) *GuardedStore {
	settings := gobreaker.Settings{
		Name:    "ingest-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
	}
	return &GuardedStore{
		inner:   store,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// ExistingPostIDs delegates through the breaker.
func (g *GuardedStore) ExistingPostIDs(ctx context.Context, postIDs []string) (map[string]struct{}, error) {
	v, err := g.breaker.Execute(func() (any, error) {
		return g.inner.ExistingPostIDs(ctx, postIDs)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]struct{}), nil
}

// InsertPostsBatch delegates through the breaker.
func (g *GuardedStore) InsertPostsBatch(ctx context.Context, posts []*models.Post) (int, int, error) {
	type insertResult struct {
		inserted   int
		duplicates int
	}
	v, err := g.breaker.Execute(func() (any, error) {
		inserted, duplicates, execErr := g.inner.InsertPostsBatch(ctx, posts)
		if execErr != nil {
			return nil, execErr
		}
		return insertResult{inserted: inserted, duplicates: duplicates}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	res := v.(insertResult)
	return res.inserted, res.duplicates, nil
}
