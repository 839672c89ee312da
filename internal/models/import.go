// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package models

import "time"

// ImportResult accumulates run-level counters for one CSV import.
//
// TotalProcessed counts every non-blank data row. TotalImported counts
// records actually written as new. Rows the dedup layers classify as
// duplicates appear in neither TotalImported nor TotalErrors; they are
// no-ops.
type ImportResult struct {
	TotalProcessed int64 `json:"total_processed"`
	TotalImported  int64 `json:"total_imported"`
	TotalErrors    int64 `json:"total_errors"`

	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Duration returns how long the import ran.
func (r *ImportResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// RowsPerSecond returns the processing rate.
func (r *ImportResult) RowsPerSecond() float64 {
	secs := r.Duration().Seconds()
	if secs == 0 {
		return 0
	}
	return float64(r.TotalProcessed) / secs
}

// Clean reports whether the run finished without any row or batch errors.
func (r *ImportResult) Clean() bool {
	return r.TotalErrors == 0
}

// ImportSummary is the JSON shape returned by the import endpoints.
type ImportSummary struct {
	Status         string    `json:"status"`
	TotalProcessed int64     `json:"total_processed"`
	TotalImported  int64     `json:"total_imported"`
	TotalErrors    int64     `json:"total_errors"`
	FileName       string    `json:"file_name"`
	FileSize       int64     `json:"file_size"`
	RowsPerSec     float64   `json:"rows_per_second"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	StartTime      time.Time `json:"start_time"`
}

// ToSummary converts an ImportResult to its API representation.
// Status is "completed" for clean runs and "completed_with_errors"
// when some rows or batches failed.
func (r *ImportResult) ToSummary() *ImportSummary {
	status := "completed"
	if !r.Clean() {
		status = "completed_with_errors"
	}
	return &ImportSummary{
		Status:         status,
		TotalProcessed: r.TotalProcessed,
		TotalImported:  r.TotalImported,
		TotalErrors:    r.TotalErrors,
		FileName:       r.FileName,
		FileSize:       r.FileSize,
		RowsPerSec:     r.RowsPerSecond(),
		ElapsedSeconds: r.Duration().Seconds(),
		StartTime:      r.StartTime,
	}
}
