// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/metrics"
	"github.com/kmori/postlens/internal/models"
)

// InsertPostsBatch inserts posts in a single transaction using a
// prepared statement with ON CONFLICT DO NOTHING.
//
// The conflict clause is the second dedup layer beneath the resolver's
// existence pre-check: it absorbs races where another import (or a
// retry) persisted the same post_id between lookup and commit.
//
// Returns:
//   - inserted: rows that produced a new record
//   - duplicates: rows skipped by the conflict clause
//   - err: transaction failure; all rows are rolled back
func (db *DB) InsertPostsBatch(ctx context.Context, posts []*models.Post) (inserted, duplicates int, err error) {
	if len(posts) == 0 {
		return 0, 0, nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert_posts_batch", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	query := `INSERT INTO posts (
		id, influencer_id, post_id, shortcode,
		like_count, comment_count, thumbnail_url, text,
		posted_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close prepared statement")
		}
	}()

	for _, post := range posts {
		if post.ID == uuid.Nil {
			post.ID = uuid.New()
		}
		if post.CreatedAt.IsZero() {
			post.CreatedAt = time.Now()
		}

		result, execErr := stmt.ExecContext(ctx,
			post.ID, post.InfluencerID, post.PostID, post.Shortcode,
			post.LikeCount, post.CommentCount, post.ThumbnailURL, post.Text,
			post.PostedAt, post.CreatedAt,
		)
		if execErr != nil {
			err = fmt.Errorf("failed to insert post %s: %w", post.PostID, execErr)
			return 0, 0, err
		}

		affected, raErr := result.RowsAffected()
		if raErr != nil {
			// Driver could not report the count; assume inserted since
			// the statement itself succeeded.
			inserted++
			continue
		}
		if affected > 0 {
			inserted++
		} else {
			duplicates++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, duplicates, nil
}

// ExistingPostIDs returns which of the given external post identifiers
// already exist in the store.
//
// Callers are expected to keep the identifier list bounded (the ingest
// resolver chunks its lookups); this method does not split the IN list
// itself.
func (db *DB) ExistingPostIDs(ctx context.Context, postIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(postIDs) == 0 {
		return existing, nil
	}

	start := time.Now()
	var err error
	defer func() { metrics.RecordDBQuery("existing_post_ids", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	placeholders := make([]string, len(postIDs))
	args := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("SELECT post_id FROM posts WHERE post_id IN (%s)",
		strings.Join(placeholders, ", "))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("failed to query existing post ids: %w", err)
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close rows")
		}
	}()

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			err = fmt.Errorf("failed to scan post id: %w", err)
			return nil, err
		}
		existing[id] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to iterate existing post ids: %w", err)
		return nil, err
	}

	return existing, nil
}

// GetPostByPostID fetches one post by its external identifier.
func (db *DB) GetPostByPostID(ctx context.Context, postID string) (*models.Post, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, influencer_id, post_id, shortcode,
		like_count, comment_count, thumbnail_url, text,
		posted_at, created_at
	FROM posts WHERE post_id = ?`

	post := &models.Post{}
	err := db.conn.QueryRowContext(ctx, query, postID).Scan(
		&post.ID, &post.InfluencerID, &post.PostID, &post.Shortcode,
		&post.LikeCount, &post.CommentCount, &post.ThumbnailURL, &post.Text,
		&post.PostedAt, &post.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post not found: %s", postID)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// CountPosts returns the total number of persisted posts.
func (db *DB) CountPosts(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// GetInfluencerTexts returns the non-empty post texts of one
// influencer, newest first, for lexical analysis. limit <= 0 returns
// everything.
func (db *DB) GetInfluencerTexts(ctx context.Context, influencerID int64, limit int) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { metrics.RecordDBQuery("influencer_texts", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT text FROM posts
		WHERE influencer_id = ? AND text IS NOT NULL AND text <> ''
		ORDER BY posted_at DESC NULLS LAST`
	args := []interface{}{influencerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("failed to query influencer texts: %w", err)
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close rows")
		}
	}()

	var texts []string
	for rows.Next() {
		var text string
		if err = rows.Scan(&text); err != nil {
			err = fmt.Errorf("failed to scan text: %w", err)
			return nil, err
		}
		texts = append(texts, text)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to iterate influencer texts: %w", err)
		return nil, err
	}

	return texts, nil
}
