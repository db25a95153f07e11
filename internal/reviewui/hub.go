// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reviewui is the review UI's external surface: a websocket push
// feed, a gin HTTP surface fronting it, and a terminal console — all thin
// clients over internal/review's state machine and Store, per spec.md §6's
// "review UI and its WebSocket feed" external collaborator.
package reviewui

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/spec-harvester/internal/review"
)

// Hub fans a row-changed event out to every websocket client subscribed to
// that row's category. One Hub serves every category; subscriptions are
// partitioned in-process rather than one hub per category, since the
// connection set per category is small and a single broadcast goroutine
// keeps ordering simple.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn     *websocket.Conn
	category string
	send     chan review.Row
	done     chan struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

// PublishRowChanged implements review.Publisher: every connected client
// subscribed to row.Key.Category receives the updated row as JSON.
func (h *Hub) PublishRowChanged(row review.Row) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.category != row.Key.Category {
			continue
		}
		select {
		case c.send <- row:
		case <-c.done:
		default:
			h.logger.Warn("reviewui: dropping slow client", "category", c.category)
		}
	}
}

// ServeWS upgrades r into a websocket connection subscribed to category and
// blocks until the connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, category string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, category: category, send: make(chan review.Row, 32), done: make(chan struct{})}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
	}()

	go h.drainReads(c)

	for {
		select {
		case row := <-c.send:
			payload, err := json.Marshal(row)
			if err != nil {
				h.logger.Error("reviewui: marshaling row", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return err
			}
		case <-c.done:
			return nil
		}
	}
}

// drainReads discards client messages; a read error (including client
// disconnect) signals done so the write loop and PublishRowChanged both
// stop touching this client.
func (h *Hub) drainReads(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			close(c.done)
			return
		}
	}
}
