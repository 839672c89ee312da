// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/models"
)

// historyKeyPrefix namespaces run records in the Badger keyspace.
// Keys are the prefix plus a zero-padded unix-nano timestamp so
// lexicographic order is chronological order.
var historyKeyPrefix = []byte("run!")

// History persists completed import results in a local Badger store so
// the run history survives restarts.
type History struct {
	db    *badger.DB
	limit int
}

// OpenHistory opens (or creates) the history store at dir, retaining
// at most limit completed runs. An empty dir returns nil, which every
// method tolerates (history disabled).
func OpenHistory(dir string, limit int) (*History, error) {
	if dir == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open import history store: %w", err)
	}
	return &History{db: db, limit: limit}, nil
}

// Append records one completed run and prunes entries beyond the
// retention limit.
func (h *History) Append(result *models.ImportResult) error {
	if h == nil {
		return nil
	}

	key := fmt.Appendf(nil, "%s%020d", historyKeyPrefix, result.EndTime.UnixNano())
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal import result: %w", err)
	}

	err = h.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to append import history: %w", err)
	}

	if err := h.prune(); err != nil {
		// Retention is best-effort; the new record is already stored.
		logging.Warn().Err(err).Msg("Failed to prune import history")
	}
	return nil
}

// Recent returns up to n completed runs, newest first.
func (h *History) Recent(n int) ([]*models.ImportResult, error) {
	if h == nil {
		return nil, nil
	}
	if n <= 0 || n > h.limit {
		n = h.limit
	}

	var results []*models.ImportResult
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = historyKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible key, then walk backwards.
		seekKey := append(bytes.Clone(historyKeyPrefix), 0xFF)
		for it.Seek(seekKey); it.Valid() && len(results) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				result := &models.ImportResult{}
				if err := json.Unmarshal(val, result); err != nil {
					return fmt.Errorf("failed to unmarshal import result: %w", err)
				}
				results = append(results, result)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read import history: %w", err)
	}
	return results, nil
}

// Clear removes all stored runs.
func (h *History) Clear() error {
	if h == nil {
		return nil
	}
	return h.db.DropPrefix(historyKeyPrefix)
}

// Close closes the underlying store.
func (h *History) Close() error {
	if h == nil {
		return nil
	}
	return h.db.Close()
}

// prune deletes the oldest entries beyond the retention limit.
func (h *History) prune() error {
	return h.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = historyKeyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		if len(keys) <= h.limit {
			return nil
		}
		for _, key := range keys[:len(keys)-h.limit] {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
