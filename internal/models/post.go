// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

// Package models defines the shared data structures of Postlens: the
// persisted post record, import accounting, analytics read models, and
// the API response envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is one influencer post as persisted in the store.
//
// ID is the internal primary key; PostID is the source platform's
// identifier and carries the global uniqueness constraint that the
// ingestion dedup layers rely on. Optional CSV columns map to pointer
// fields so "not provided" survives a round trip through the store.
type Post struct {
	ID           uuid.UUID  `json:"id"`
	InfluencerID int64      `json:"influencer_id"`
	PostID       string     `json:"post_id"`
	Shortcode    *string    `json:"shortcode,omitempty"`
	LikeCount    int64      `json:"like_count"`
	CommentCount int64      `json:"comment_count"`
	ThumbnailURL *string    `json:"thumbnail_url,omitempty"`
	Text         *string    `json:"text,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
