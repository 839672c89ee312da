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
	"time"

	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/metrics"
	"github.com/kmori/postlens/internal/models"
)

// Ranking metrics accepted by RankInfluencers.
const (
	MetricLikes    = "likes"
	MetricComments = "comments"
)

// ErrUnknownMetric is returned for ranking metrics other than
// MetricLikes and MetricComments.
var ErrUnknownMetric = errors.New("unknown ranking metric")

// GetOverviewStats returns store-wide aggregates.
func (db *DB) GetOverviewStats(ctx context.Context) (*models.OverviewStats, error) {
	start := time.Now()
	var err error
	defer func() { metrics.RecordDBQuery("overview_stats", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT
		COUNT(*),
		COUNT(DISTINCT influencer_id),
		AVG(like_count),
		AVG(comment_count),
		MAX(posted_at)
	FROM posts`

	var (
		avgLikes    sql.NullFloat64
		avgComments sql.NullFloat64
		latest      sql.NullTime
	)
	stats := &models.OverviewStats{}
	err = db.conn.QueryRowContext(ctx, query).Scan(
		&stats.TotalPosts, &stats.TotalInfluencers,
		&avgLikes, &avgComments, &latest,
	)
	if err != nil {
		err = fmt.Errorf("failed to query overview stats: %w", err)
		return nil, err
	}

	stats.AvgLikes = nullFloat(avgLikes)
	stats.AvgComments = nullFloat(avgComments)
	if latest.Valid {
		t := latest.Time
		stats.LatestPostedAt = &t
	}

	return stats, nil
}

// GetInfluencerStats returns aggregates for one influencer. A nil
// result with nil error means the influencer has no posts.
func (db *DB) GetInfluencerStats(ctx context.Context, influencerID int64) (*models.InfluencerStats, error) {
	start := time.Now()
	var err error
	defer func() { metrics.RecordDBQuery("influencer_stats", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT
		COUNT(*),
		SUM(like_count),
		SUM(comment_count),
		AVG(like_count),
		AVG(comment_count)
	FROM posts WHERE influencer_id = ?`

	var (
		postCount     int64
		totalLikes    sql.NullInt64
		totalComments sql.NullInt64
		avgLikes      sql.NullFloat64
		avgComments   sql.NullFloat64
	)
	err = db.conn.QueryRowContext(ctx, query, influencerID).Scan(
		&postCount, &totalLikes, &totalComments, &avgLikes, &avgComments,
	)
	if err != nil {
		err = fmt.Errorf("failed to query influencer stats: %w", err)
		return nil, err
	}

	if postCount == 0 {
		return nil, nil
	}

	return &models.InfluencerStats{
		InfluencerID:  influencerID,
		PostCount:     postCount,
		TotalLikes:    nullInt64(totalLikes),
		TotalComments: nullInt64(totalComments),
		AvgLikes:      nullFloat(avgLikes),
		AvgComments:   nullFloat(avgComments),
	}, nil
}

// RankInfluencers ranks influencers by the grouped average of the
// given metric, descending. Ties break on influencer_id for a stable
// order.
func (db *DB) RankInfluencers(ctx context.Context, metric string, limit int) ([]models.RankingEntry, error) {
	var column string
	switch metric {
	case MetricLikes:
		column = "like_count"
	case MetricComments:
		column = "comment_count"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	start := time.Now()
	var err error
	defer func() { metrics.RecordDBQuery("rank_influencers", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	// column comes from the switch above, never from the caller.
	query := fmt.Sprintf(`SELECT influencer_id, COUNT(*), AVG(%s)
		FROM posts
		GROUP BY influencer_id
		ORDER BY AVG(%s) DESC, influencer_id ASC
		LIMIT ?`, column, column)

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		err = fmt.Errorf("failed to query influencer ranking: %w", err)
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close rows")
		}
	}()

	var entries []models.RankingEntry
	rank := 1
	for rows.Next() {
		var (
			entry models.RankingEntry
			avg   sql.NullFloat64
		)
		if err = rows.Scan(&entry.InfluencerID, &entry.PostCount, &avg); err != nil {
			err = fmt.Errorf("failed to scan ranking entry: %w", err)
			return nil, err
		}
		entry.Rank = rank
		entry.AvgValue = nullFloat(avg)
		entries = append(entries, entry)
		rank++
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to iterate ranking: %w", err)
		return nil, err
	}

	return entries, nil
}
