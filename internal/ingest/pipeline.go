// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kmori/postlens/internal/config"
	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/metrics"
	"github.com/kmori/postlens/internal/models"
)

// DefaultBatchSize is the flush threshold when none is configured.
const DefaultBatchSize = 1000

// Pipeline orchestrates one CSV import run: streaming decode, row
// transformation, accumulation into a bounded buffer, and batched
// flushes through the dedup resolver and the batch committer.
//
// Execution is single-goroutine and sequential: the next row is not
// decoded until the current batch's persistence completed, so peak
// memory stays around one batch of records and the store sees no
// concurrent writes from within one run.
type Pipeline struct {
	transformer *Transformer
	resolver    *Resolver
	committer   *Committer
	batchSize   int
	failures    *FailureLog
	limiter     *rate.Limiter
}

// NewPipeline wires a pipeline against the given store. failures may
// be nil to disable the side failure log.
func NewPipeline(store Store, cfg *config.ImportConfig, failures *FailureLog) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var limiter *rate.Limiter
	if cfg.CommitRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.CommitRatePerSec), 1)
	}

	return &Pipeline{
		transformer: NewTransformer(),
		resolver:    NewResolver(store, cfg.LookupChunkSize),
		committer:   NewCommitter(store),
		batchSize:   batchSize,
		failures:    failures,
		limiter:     limiter,
	}
}

// ImportBuffer runs one import over the uploaded bytes.
//
// Row validation failures and batch persistence failures are counted
// in the returned result and never abort the run. Only a stream-level
// decode failure is fatal: it returns a *DecodeError and no result.
func (p *Pipeline) ImportBuffer(ctx context.Context, data []byte, fileName string) (*models.ImportResult, error) {
	result := &models.ImportResult{
		FileName:  fileName,
		FileSize:  int64(len(data)),
		StartTime: time.Now(),
	}

	reader := csv.NewReader(bytes.NewReader(data))
	// Rows with a deviating field count are handled per-row, not as a
	// stream failure.
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		// Zero-byte input: all counters zero, store never contacted.
		result.EndTime = time.Now()
		metrics.ImportRuns.WithLabelValues("clean").Inc()
		return result, nil
	}
	if err != nil {
		metrics.ImportRuns.WithLabelValues("failed").Inc()
		return nil, &DecodeError{Err: err}
	}

	columns, err := normalizeHeader(header)
	if err != nil {
		metrics.ImportRuns.WithLabelValues("failed").Inc()
		return nil, &DecodeError{Err: err}
	}

	logging.Info().
		Str("file", fileName).
		Int64("size_bytes", result.FileSize).
		Int("batch_size", p.batchSize).
		Msg("Import started")

	buffer := make([]*models.Post, 0, p.batchSize)
	line := 1 // header

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			// The decoder cannot produce further rows; fatal, and no
			// partial result is returned.
			metrics.ImportRuns.WithLabelValues("failed").Inc()
			return nil, &DecodeError{Err: readErr}
		}
		line++

		row := make(RawRow, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		if row.blank() {
			continue
		}

		result.TotalProcessed++
		metrics.ImportRowsProcessed.Inc()

		post, transformErr := p.transformer.Transform(row, line)
		if transformErr != nil {
			result.TotalErrors++
			metrics.ImportRowErrors.WithLabelValues("validation").Inc()
			logging.Warn().
				Err(transformErr).
				Str("file", fileName).
				Interface("raw_row", row).
				Msg("Row validation failed")
			continue
		}

		buffer = append(buffer, post)
		if len(buffer) >= p.batchSize {
			p.flush(ctx, buffer, result, fileName)
			buffer = buffer[:0]
		}
	}

	// Drain the remainder.
	if len(buffer) > 0 {
		p.flush(ctx, buffer, result, fileName)
	}

	result.EndTime = time.Now()

	outcome := "clean"
	if result.TotalErrors > 0 {
		outcome = "degraded"
	}
	metrics.ImportRuns.WithLabelValues(outcome).Inc()

	logging.Info().
		Str("file", fileName).
		Int64("processed", result.TotalProcessed).
		Int64("imported", result.TotalImported).
		Int64("errors", result.TotalErrors).
		Dur("duration", result.Duration()).
		Msg("Import completed")

	return result, nil
}

// flush pushes the buffer through the resolver and the committer and
// folds the outcome into the run counters.
//
// Success adds the created count to TotalImported; duplicates the
// resolver skipped count toward neither imports nor errors. Any
// resolver or committer failure counts the whole buffer as errors
// (the committer's all-or-nothing contract makes that safe), appends
// the batch to the side failure log, and lets the run continue.
func (p *Pipeline) flush(ctx context.Context, buffer []*models.Post, result *models.ImportResult, fileName string) {
	start := time.Now()
	defer func() {
		metrics.ImportBatchFlushDuration.Observe(time.Since(start).Seconds())
	}()

	created, skipped, err := p.flushBatch(ctx, buffer)
	if err != nil {
		result.TotalErrors += int64(len(buffer))
		metrics.ImportRowErrors.WithLabelValues("batch").Add(float64(len(buffer)))

		logging.Error().
			Err(err).
			Str("file", fileName).
			Int("batch_records", len(buffer)).
			Msg("Batch flush failed; records counted as errors")

		failed := &FailedBatch{
			Timestamp: time.Now(),
			FileName:  fileName,
			Reason:    err.Error(),
			Records:   append([]*models.Post(nil), buffer...),
		}
		if logErr := p.failures.Append(failed); logErr != nil {
			logging.Error().Err(logErr).Msg("Failed to record batch in failure log")
		}
		return
	}

	result.TotalImported += int64(created)
	metrics.ImportRowsImported.Add(float64(created))
	metrics.ImportDuplicatesSkipped.Add(float64(skipped))

	logging.Debug().
		Str("file", fileName).
		Int("created", created).
		Int("skipped_duplicates", skipped).
		Msg("Batch flushed")
}

// flushBatch performs one resolve-and-commit cycle.
func (p *Pipeline) flushBatch(ctx context.Context, buffer []*models.Post) (created, skipped int, err error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, 0, fmt.Errorf("commit pacing interrupted: %w", err)
		}
	}

	toCreate, toSkip, err := p.resolver.ResolveDuplicates(ctx, buffer)
	if err != nil {
		return 0, 0, err
	}

	createdRecords, err := p.committer.Commit(ctx, toCreate)
	if err != nil {
		return 0, 0, err
	}

	return len(createdRecords), len(toSkip), nil
}

// normalizeHeader lowercases and trims column names, strips a UTF-8
// BOM off the first cell, and verifies the required columns are
// present.
func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		columns[i] = strings.ToLower(strings.TrimSpace(col))
	}

	for _, required := range RequiredColumns {
		found := false
		for _, col := range columns {
			if col == required {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("header is missing required column %q", required)
		}
	}
	return columns, nil
}
