// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmori/postlens/internal/config"
)

// Router assembles the HTTP surface.
type Router struct {
	cfg      *config.Config
	handlers *Handlers
}

// NewRouter creates the router.
func NewRouter(cfg *config.Config, handlers *Handlers) *Router {
	return &Router{cfg: cfg, handlers: handlers}
}

// Setup configures all routes and middleware and returns the root
// handler.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-File-Name", requestIDHeader},
		MaxAge:         300,
	}))

	// Health endpoints: permissive rate limit so monitoring can poll
	// frequently, no auth.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", rt.handlers.HandleHealth)
		r.Get("/live", rt.handlers.HandleHealthLive)
		r.Get("/ready", rt.handlers.HandleHealthReady)
	})

	// Auth endpoints: strict rate limit against brute force.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(5, 5*time.Minute))
		r.Post("/login", rt.handlers.HandleLogin)
	})

	// Data endpoints.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow))
		r.Use(PrometheusMetrics())
		r.Use(Authenticate(&rt.cfg.Security))

		r.Post("/import/posts", rt.handlers.HandleImport)
		r.Get("/import/status", rt.handlers.HandleImportStatus)
		r.Get("/import/history", rt.handlers.HandleImportHistory)

		r.Get("/stats", rt.handlers.HandleStats)
		r.Get("/rankings", rt.handlers.HandleRankings)
		r.Get("/influencers/{id}/stats", rt.handlers.HandleInfluencerStats)
		r.Get("/influencers/{id}/nouns", rt.handlers.HandleInfluencerNouns)
	})

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
