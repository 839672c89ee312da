// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kmori/postlens/internal/database"
	"github.com/kmori/postlens/internal/models"
	"github.com/kmori/postlens/internal/tokenizer"
	"github.com/kmori/postlens/internal/validation"
)

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.store.GetOverviewStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError,
			"failed to compute overview statistics", err)
		return
	}

	respondSuccess(w, http.StatusOK, stats, start)
}

// HandleInfluencerStats handles GET /api/v1/influencers/{id}/stats.
func (h *Handlers) HandleInfluencerStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	influencerID, ok := influencerIDParam(w, r)
	if !ok {
		return
	}

	stats, err := h.store.GetInfluencerStats(r.Context(), influencerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError,
			"failed to compute influencer statistics", err)
		return
	}
	if stats == nil {
		respondError(w, http.StatusNotFound, codeNotFound,
			"no posts found for influencer", nil)
		return
	}

	respondSuccess(w, http.StatusOK, stats, start)
}

// rankingsRequest validates the rankings query parameters.
type rankingsRequest struct {
	Metric string `validate:"required,oneof=likes comments"`
	Limit  int    `validate:"min=1,max=100"`
}

// HandleRankings handles GET /api/v1/rankings?metric=likes|comments.
func (h *Handlers) HandleRankings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := rankingsRequest{
		Metric: r.URL.Query().Get("metric"),
		Limit:  getIntParam(r, "limit", h.cfg.API.DefaultPageSize),
	}
	if req.Metric == "" {
		req.Metric = database.MetricLikes
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, err.Error(), nil)
		return
	}

	entries, err := h.store.RankInfluencers(r.Context(), req.Metric, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError,
			"failed to compute ranking", err)
		return
	}
	if entries == nil {
		entries = []models.RankingEntry{}
	}

	respondSuccess(w, http.StatusOK, entries, start)
}

// nounsRequest validates the noun analysis query parameters.
type nounsRequest struct {
	Limit int `validate:"min=1,max=100"`
}

// maxAnalyzedPosts bounds how many post texts one noun analysis pulls
// from the store.
const maxAnalyzedPosts = 1000

// HandleInfluencerNouns handles GET /api/v1/influencers/{id}/nouns:
// the noun frequency ranking over the influencer's post texts.
func (h *Handlers) HandleInfluencerNouns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	influencerID, ok := influencerIDParam(w, r)
	if !ok {
		return
	}

	req := nounsRequest{Limit: getIntParam(r, "limit", h.cfg.API.DefaultPageSize)}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, err.Error(), nil)
		return
	}

	texts, err := h.store.GetInfluencerTexts(r.Context(), influencerID, maxAnalyzedPosts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError,
			"failed to load post texts", err)
		return
	}
	if len(texts) == 0 {
		respondError(w, http.StatusNotFound, codeNotFound,
			"no post text found for influencer", nil)
		return
	}

	tk, err := h.tokens.Get()
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeTokenizerError,
			"tokenizer is unavailable", err)
		return
	}

	nouns := tokenizer.TopNouns(tk, texts, req.Limit)
	respondSuccess(w, http.StatusOK, nouns, start)
}

// influencerIDParam parses the {id} path parameter as a positive
// integer, answering 400 itself on failure.
func influencerIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, codeValidationError,
			"influencer id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
