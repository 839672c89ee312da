// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package models

import "time"

// OverviewStats summarizes the whole store.
type OverviewStats struct {
	TotalPosts       int64      `json:"total_posts"`
	TotalInfluencers int64      `json:"total_influencers"`
	AvgLikes         float64    `json:"avg_likes"`
	AvgComments      float64    `json:"avg_comments"`
	LatestPostedAt   *time.Time `json:"latest_posted_at,omitempty"`
}

// InfluencerStats summarizes one influencer's posts.
type InfluencerStats struct {
	InfluencerID  int64   `json:"influencer_id"`
	PostCount     int64   `json:"post_count"`
	TotalLikes    int64   `json:"total_likes"`
	TotalComments int64   `json:"total_comments"`
	AvgLikes      float64 `json:"avg_likes"`
	AvgComments   float64 `json:"avg_comments"`
}

// RankingEntry is one row of an influencer ranking, ordered by the
// requested metric's grouped average.
type RankingEntry struct {
	Rank         int     `json:"rank"`
	InfluencerID int64   `json:"influencer_id"`
	PostCount    int64   `json:"post_count"`
	AvgValue     float64 `json:"avg_value"`
}

// NounCount is one entry of a noun frequency ranking extracted from
// post text.
type NounCount struct {
	Noun  string `json:"noun"`
	Count int    `json:"count"`
}
