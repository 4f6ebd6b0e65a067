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

// Package websocket implements the admin API's live feed of directory
// events: every PeerUpdated notification raised by the directory
// server is pushed, JSON-encoded, to each connected client.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/relaybus/relaybus/internal/bus/directory"
	"github.com/relaybus/relaybus/internal/http/websocket"
	gorillaWebsocket "github.com/gorilla/websocket"
)

// PeersWebsocket streams PeerUpdated events from a directory.Server to
// one connected admin client.
type PeersWebsocket struct {
	server      *directory.Server
	unsubscribe func()
}

// CreatePeersWebsocket returns a Websocket that relays server's
// PeerUpdated notifications.
func CreatePeersWebsocket(server *directory.Server) *PeersWebsocket {
	return &PeersWebsocket{server: server}
}

func (p *PeersWebsocket) OnMessage(_ context.Context, _ *http.Request, _ websocket.Writer, _ []byte, _ int) {
}

func (p *PeersWebsocket) OnConnect(_ context.Context, _ *http.Request, w websocket.Writer) {
	p.unsubscribe = p.server.OnPeerUpdated(func(update directory.PeerUpdated) {
		payload, err := json.Marshal(update)
		if err != nil {
			slog.Error("peers websocket: failed to marshal update", "error", err)
			return
		}
		if err := w.WriteMessage(websocket.Message{Type: gorillaWebsocket.TextMessage, Data: payload}); err != nil {
			slog.Error("peers websocket: failed to write update", "error", err)
		}
	})
}

func (p *PeersWebsocket) OnDisconnect(_ context.Context, _ *http.Request) {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}
