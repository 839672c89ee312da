// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"context"
	"fmt"

	"github.com/kmori/postlens/internal/models"
)

// Resolver partitions candidate posts into new records and
// already-persisted duplicates by external identifier.
//
// The existence lookup is chunked into sub-batches of chunkSize so the
// IN(...) parameter list stays within query engine limits; the chunk
// size is tuned independently of the ingestion batch size because the
// constraint it protects against is unrelated to throughput. The
// resolver has no side effects and is safe to retry.
type Resolver struct {
	store     Store
	chunkSize int
}

// NewResolver creates a dedup resolver. chunkSize must be positive.
func NewResolver(store Store, chunkSize int) *Resolver {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &Resolver{store: store, chunkSize: chunkSize}
}

// ResolveDuplicates splits candidates into toCreate and toSkip.
//
// A candidate goes to toSkip when its post_id already exists in the
// store, or when an earlier candidate in the same batch carries the
// same post_id (in-batch repeats would otherwise be silently absorbed
// by the committer's conflict clause and skew accounting). Order is
// preserved within both partitions.
func (r *Resolver) ResolveDuplicates(ctx context.Context, candidates []*models.Post) (toCreate, toSkip []*models.Post, err error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, len(candidates))
	for i, post := range candidates {
		ids[i] = post.PostID
	}

	existing, err := r.lookupExisting(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, post := range candidates {
		if _, dup := existing[post.PostID]; dup {
			toSkip = append(toSkip, post)
			continue
		}
		if _, dup := seen[post.PostID]; dup {
			toSkip = append(toSkip, post)
			continue
		}
		seen[post.PostID] = struct{}{}
		toCreate = append(toCreate, post)
	}

	return toCreate, toSkip, nil
}

// lookupExisting queries the store in bounded chunks and unions the
// results.
func (r *Resolver) lookupExisting(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for start := 0; start < len(ids); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk, err := r.store.ExistingPostIDs(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("existence lookup failed for ids[%d:%d]: %w", start, end, err)
		}
		for id := range chunk {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}
