// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package database

import "database/sql"

// coerce.go - numeric coercion at the storage-adapter boundary.
//
// Aggregate queries (AVG, SUM) return NULL over empty groups. These
// helpers map NULL to zero so the read models carry plain numeric
// types and every caller sees the same "no data means zero" rule.

// nullFloat maps a nullable float column to a plain float64, NULL -> 0.
func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return 0
	}
	return v.Float64
}

// nullInt64 maps a nullable integer column to a plain int64, NULL -> 0.
func nullInt64(v sql.NullInt64) int64 {
	if !v.Valid {
		return 0
	}
	return v.Int64
}
