// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/kmori/postlens/internal/models"
)

// dateLayouts are the accepted post_date formats, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// Transformer converts raw CSV rows into validated Post records.
//
// Validation is deliberately asymmetric: identifiers are strict
// because dedup correctness depends on them, while metrics and dates
// are best-effort analytics data that default rather than fail.
type Transformer struct{}

// NewTransformer creates a row transformer.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform validates one raw row and produces a Post.
//
// Fails with *ValidationError when post_id is absent or blank, or when
// influencer_id does not parse to a positive integer. likes and
// comments default to 0 when absent or unparseable; empty optional
// strings normalize to nil; an unparseable post_date becomes nil.
func (t *Transformer) Transform(row RawRow, line int) (*models.Post, error) {
	postID := strings.TrimSpace(row[ColPostID])
	if postID == "" {
		return nil, &ValidationError{Line: line, Field: ColPostID, Reason: "required value is missing or blank"}
	}

	rawInfluencer := strings.TrimSpace(row[ColInfluencerID])
	influencerID, err := strconv.ParseInt(rawInfluencer, 10, 64)
	if err != nil || influencerID <= 0 {
		return nil, &ValidationError{Line: line, Field: ColInfluencerID, Reason: "must be a positive integer, got " + strconv.Quote(rawInfluencer)}
	}

	post := &models.Post{
		InfluencerID: influencerID,
		PostID:       postID,
		LikeCount:    parseCount(row[ColLikes]),
		CommentCount: parseCount(row[ColComments]),
		Shortcode:    optionalString(row[ColShortcode]),
		ThumbnailURL: optionalString(row[ColThumbnail]),
		Text:         optionalString(row[ColText]),
		PostedAt:     parseDate(row[ColPostDate]),
	}
	return post, nil
}

// parseCount parses a non-negative metric, defaulting to 0 on absent,
// unparseable, or negative input.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// optionalString maps "" to nil so an empty CSV cell persists as
// "field not provided" rather than an empty string.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseDate tries each accepted layout; unparseable dates are treated
// as absent, not as row failures.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}
