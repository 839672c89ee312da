// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package api

import (
	"net/http"
	"time"
)

// HandleHealthLive handles GET /api/v1/health/live. Always healthy
// while the process is up.
func (h *Handlers) HandleHealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HandleHealthReady handles GET /api/v1/health/ready. Ready means the
// database answers a ping.
func (h *Handlers) HandleHealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, codeDatabaseError,
			"database is not reachable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, start)
}

// HandleHealth handles GET /api/v1/health: liveness plus component
// detail.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbStatus := "connected"
	overall := "healthy"
	if err := h.store.Ping(r.Context()); err != nil {
		dbStatus = "error"
		overall = "degraded"
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status": overall,
		"components": map[string]string{
			"database": dbStatus,
		},
	}, start)
}
