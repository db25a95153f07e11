// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reviewui

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/spec-harvester/internal/review"
)

// Server is the review UI's HTTP surface: health, a queue snapshot, and the
// websocket upgrade endpoint. Router construction follows the teacher's
// cmd/trace gin setup (gin.New + Recovery + otelgin middleware, route
// groups registered by a dedicated function).
type Server struct {
	store  *review.Store
	hub    *Hub
	logger *slog.Logger
	router *gin.Engine
}

// NewServer builds the gin router. store backs the queue snapshot; hub
// (may be nil) backs the websocket feed.
func NewServer(store *review.Store, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, hub: hub, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("spec-harvester-review"))

	v1 := router.Group("/v1/review")
	v1.GET("/healthz", s.handleHealth)
	v1.GET("/queue/:category", s.handleQueueSnapshot)
	v1.GET("/ws/:category", s.handleWS)

	s.router = router
	return s
}

// Handler returns the http.Handler to mount (e.g. for httptest or a
// custom *http.Server), so callers are never forced through router.Run.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleQueueSnapshot serves spec.md §6's `_review/{category}/queue.json`
// contents directly from the Store, so the review queue page always
// reflects durable state rather than a stale cache.
func (s *Server) handleQueueSnapshot(c *gin.Context) {
	category := c.Param("category")
	rows, err := s.store.ListRows(c.Request.Context(), category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "rows": rows})
}

func (s *Server) handleWS(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed disabled"})
		return
	}
	if err := s.hub.ServeWS(c.Writer, c.Request, c.Param("category")); err != nil {
		s.logger.Warn("reviewui: websocket session ended", "error", err)
	}
}
