// SPDX-License-Identifier: AGPL-3.0-or-later
// relaybus - a distributed peer-to-peer service bus
// Copyright (C) 2023-2026 relaybus contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/relaybus/relaybus>

// Package websocket provides a small connect/message/disconnect
// lifecycle over a gorilla/websocket connection so individual relay
// handlers (peers, in the admin API) don't each reimplement the
// upgrade and read-pump boilerplate.
package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/relaybus/relaybus/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

// Message is one frame written to or read from a websocket
// connection.
type Message struct {
	Type int
	Data []byte
}

// Writer lets a Websocket implementation push frames to its client
// without holding the underlying connection directly.
type Writer interface {
	WriteMessage(msg Message) error
}

// Websocket is implemented by a relay handler for one logical
// connection. OnConnect runs once the upgrade succeeds; OnMessage runs
// for every inbound client frame; OnDisconnect always runs on the way
// out, whether the client closed the socket or the server context was
// canceled.
type Websocket interface {
	OnConnect(ctx context.Context, r *http.Request, w Writer)
	OnMessage(ctx context.Context, r *http.Request, w Writer, data []byte, messageType int)
	OnDisconnect(ctx context.Context, r *http.Request)
}

type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) WriteMessage(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(msg.Type, msg.Data)
}

func upgrader(cfg *config.Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:    bufferSize,
		WriteBufferSize:   bufferSize,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(cfg.HTTP.CORSHosts) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return false
			}
			for _, host := range cfg.HTTP.CORSHosts {
				if strings.Contains(origin, host) {
					return true
				}
			}
			return false
		},
	}
}

// CreateHandler upgrades the request to a websocket and drives ws's
// lifecycle for the life of the connection.
func CreateHandler(cfg *config.Config, ws Websocket) gin.HandlerFunc {
	up := upgrader(cfg)
	return func(c *gin.Context) {
		conn, err := up.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket: failed to upgrade connection", "error", err)
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				slog.Error("websocket: failed to close connection", "error", err)
			}
		}()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		w := &connWriter{conn: conn}
		ws.OnConnect(ctx, c.Request, w)
		defer ws.OnDisconnect(ctx, c.Request)

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ws.OnMessage(ctx, c.Request, w, data, messageType)
		}
	}
}
