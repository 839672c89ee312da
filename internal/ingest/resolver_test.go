// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/kmori/postlens/internal/models"
)

func makePosts(postIDs ...string) []*models.Post {
	posts := make([]*models.Post, len(postIDs))
	for i, id := range postIDs {
		posts[i] = &models.Post{InfluencerID: 1, PostID: id}
	}
	return posts
}

func postIDsOf(posts []*models.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.PostID
	}
	return ids
}

func TestResolveDuplicates(t *testing.T) {
	t.Run("all new", func(t *testing.T) {
		store := newFakeStore()
		r := NewResolver(store, 500)

		toCreate, toSkip, err := r.ResolveDuplicates(context.Background(), makePosts("a", "b", "c"))
		if err != nil {
			t.Fatalf("ResolveDuplicates failed: %v", err)
		}
		if len(toCreate) != 3 || len(toSkip) != 0 {
			t.Errorf("partitions = (%d, %d), want (3, 0)", len(toCreate), len(toSkip))
		}
	})

	t.Run("existing are skipped", func(t *testing.T) {
		store := newFakeStore()
		store.posts["b"] = &models.Post{PostID: "b"}
		r := NewResolver(store, 500)

		toCreate, toSkip, err := r.ResolveDuplicates(context.Background(), makePosts("a", "b", "c"))
		if err != nil {
			t.Fatalf("ResolveDuplicates failed: %v", err)
		}
		if got := postIDsOf(toCreate); len(got) != 2 || got[0] != "a" || got[1] != "c" {
			t.Errorf("toCreate = %v, want [a c]", got)
		}
		if got := postIDsOf(toSkip); len(got) != 1 || got[0] != "b" {
			t.Errorf("toSkip = %v, want [b]", got)
		}
	})

	t.Run("in-batch repeats are skipped", func(t *testing.T) {
		store := newFakeStore()
		r := NewResolver(store, 500)

		toCreate, toSkip, err := r.ResolveDuplicates(context.Background(), makePosts("a", "a", "b", "a"))
		if err != nil {
			t.Fatalf("ResolveDuplicates failed: %v", err)
		}
		if got := postIDsOf(toCreate); len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("toCreate = %v, want [a b]", got)
		}
		if len(toSkip) != 2 {
			t.Errorf("toSkip = %v, want two repeats", postIDsOf(toSkip))
		}
	})

	t.Run("empty input contacts nothing", func(t *testing.T) {
		store := newFakeStore()
		r := NewResolver(store, 500)

		toCreate, toSkip, err := r.ResolveDuplicates(context.Background(), nil)
		if err != nil {
			t.Fatalf("ResolveDuplicates failed: %v", err)
		}
		if toCreate != nil || toSkip != nil {
			t.Errorf("partitions = (%v, %v), want both nil", toCreate, toSkip)
		}
		if store.lookupCalls != 0 {
			t.Errorf("lookup calls = %d, want 0", store.lookupCalls)
		}
	})
}

func TestResolverChunkedLookup(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, 2)

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}
	store.posts["p3"] = &models.Post{PostID: "p3"}

	toCreate, toSkip, err := r.ResolveDuplicates(context.Background(), makePosts(ids...))
	if err != nil {
		t.Fatalf("ResolveDuplicates failed: %v", err)
	}

	// 5 ids with chunk size 2: chunks of 2, 2, 1.
	if store.lookupCalls != 3 {
		t.Errorf("lookup calls = %d, want 3", store.lookupCalls)
	}
	wantSizes := []int{2, 2, 1}
	for i, want := range wantSizes {
		if store.lookupSizes[i] != want {
			t.Errorf("lookup chunk %d size = %d, want %d", i, store.lookupSizes[i], want)
		}
	}
	if len(toCreate) != 4 || len(toSkip) != 1 {
		t.Errorf("partitions = (%d, %d), want (4, 1)", len(toCreate), len(toSkip))
	}
}

func TestResolverLookupError(t *testing.T) {
	store := newFakeStore()
	store.failLookups = true
	r := NewResolver(store, 500)

	if _, _, err := r.ResolveDuplicates(context.Background(), makePosts("a")); err == nil {
		t.Fatal("expected lookup error to propagate")
	}
}

func TestResolverDefaultChunkSize(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, 0)
	if r.chunkSize != 500 {
		t.Errorf("chunkSize = %d, want 500", r.chunkSize)
	}
}

func TestCommitterCommit(t *testing.T) {
	t.Run("returns attempted records", func(t *testing.T) {
		store := newFakeStore()
		c := NewCommitter(store)

		records := makePosts("a", "b")
		created, err := c.Commit(context.Background(), records)
		if err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if len(created) != 2 {
			t.Errorf("created = %d records, want 2", len(created))
		}
		if store.stored() != 2 {
			t.Errorf("store holds %d posts, want 2", store.stored())
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		store := newFakeStore()
		c := NewCommitter(store)

		created, err := c.Commit(context.Background(), nil)
		if err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if created != nil {
			t.Errorf("created = %v, want nil", created)
		}
		if store.insertCalls != 0 {
			t.Errorf("insert calls = %d, want 0", store.insertCalls)
		}
	})

	t.Run("failure is all-or-nothing", func(t *testing.T) {
		store := newFakeStore()
		store.failInserts = true
		c := NewCommitter(store)

		created, err := c.Commit(context.Background(), makePosts("a", "b"))
		if err == nil {
			t.Fatal("expected commit error")
		}
		if created != nil {
			t.Errorf("created = %v, want nil on failure", created)
		}
	})
}
