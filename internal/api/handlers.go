// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kmori/postlens/internal/config"
	"github.com/kmori/postlens/internal/ingest"
	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/models"
	"github.com/kmori/postlens/internal/tokenizer"
)

// Importer runs one CSV import over uploaded bytes.
type Importer interface {
	ImportBuffer(ctx context.Context, data []byte, fileName string) (*models.ImportResult, error)
}

// RunHistory records and lists completed import runs.
type RunHistory interface {
	Append(result *models.ImportResult) error
	Recent(n int) ([]*models.ImportResult, error)
}

// StatsStore is the read side of the storage engine used by the
// handlers.
type StatsStore interface {
	Ping(ctx context.Context) error
	GetOverviewStats(ctx context.Context) (*models.OverviewStats, error)
	GetInfluencerStats(ctx context.Context, influencerID int64) (*models.InfluencerStats, error)
	RankInfluencers(ctx context.Context, metric string, limit int) ([]models.RankingEntry, error)
	GetInfluencerTexts(ctx context.Context, influencerID int64, limit int) ([]string, error)
}

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	cfg      *config.Config
	store    StatsStore
	importer Importer
	history  RunHistory
	tokens   *tokenizer.Provider
}

// NewHandlers wires the handler set. history may be nil (run history
// disabled).
func NewHandlers(cfg *config.Config, store StatsStore, importer Importer, history RunHistory, tokens *tokenizer.Provider) *Handlers {
	return &Handlers{
		cfg:      cfg,
		store:    store,
		importer: importer,
		history:  history,
		tokens:   tokens,
	}
}

// HandleImport handles POST /api/v1/import/posts.
//
// Accepts either a raw CSV body or a multipart form with a "file"
// field. A completed run always answers 200 with the three counters,
// even when some rows or batches failed; only a stream-level decode
// failure (or an oversized payload) is a failure-class response.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	data, fileName, err := h.readUpload(w, r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"upload exceeds the maximum accepted file size", err)
			return
		}
		respondError(w, http.StatusBadRequest, codeValidationError,
			"could not read upload", err)
		return
	}

	result, err := h.importer.ImportBuffer(r.Context(), data, fileName)
	if err != nil {
		var decodeErr *ingest.DecodeError
		if errors.As(err, &decodeErr) {
			respondError(w, http.StatusBadRequest, codeDecodeError,
				"the uploaded file cannot be parsed as CSV", err)
			return
		}
		respondError(w, http.StatusInternalServerError, codeDatabaseError,
			"import failed", err)
		return
	}

	if h.history != nil {
		if histErr := h.history.Append(result); histErr != nil {
			logging.Warn().Err(histErr).Msg("Failed to record import in history")
		}
	}

	respondSuccess(w, http.StatusOK, result.ToSummary(), start)
}

// readUpload extracts the CSV bytes and file name from the request,
// enforcing the configured size cap.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Import.MaxFileSize)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(h.cfg.Import.MaxFileSize); err != nil {
			return nil, "", err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}

	fileName := r.Header.Get("X-File-Name")
	if fileName == "" {
		fileName = "upload.csv"
	}
	return data, fileName, nil
}

// importStatusResponse is the payload of GET /api/v1/import/status.
type importStatusResponse struct {
	Status       string             `json:"status"`
	Capabilities importCapabilities `json:"capabilities"`
	Database     databaseStatus     `json:"database"`
}

type importCapabilities struct {
	MaxFileSize      int64    `json:"max_file_size"`
	SupportedFormats []string `json:"supported_formats"`
	BatchSize        int      `json:"batch_size"`
	RequiredColumns  []string `json:"required_columns"`
}

type databaseStatus struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// HandleImportStatus handles GET /api/v1/import/status.
func (h *Handlers) HandleImportStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbStatus := "connected"
	if err := h.store.Ping(r.Context()); err != nil {
		dbStatus = "error"
	}

	respondSuccess(w, http.StatusOK, importStatusResponse{
		Status: "ready",
		Capabilities: importCapabilities{
			MaxFileSize:      h.cfg.Import.MaxFileSize,
			SupportedFormats: []string{"csv"},
			BatchSize:        h.cfg.Import.BatchSize,
			RequiredColumns:  ingest.RequiredColumns,
		},
		Database: databaseStatus{
			Status: dbStatus,
			Type:   "duckdb",
		},
	}, start)
}

// HandleImportHistory handles GET /api/v1/import/history.
func (h *Handlers) HandleImportHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.history == nil {
		respondSuccess(w, http.StatusOK, []*models.ImportResult{}, start)
		return
	}

	limit := getIntParam(r, "limit", h.cfg.API.DefaultPageSize)
	runs, err := h.history.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError,
			"failed to read import history", err)
		return
	}
	if runs == nil {
		runs = []*models.ImportResult{}
	}

	respondSuccess(w, http.StatusOK, runs, start)
}
