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

// Package peers implements the read-only admin/inspection endpoints
// over the peer directory: list peers, fetch one peer, and issue a
// liveness ping.
package peers

import (
	"log/slog"
	"net/http"

	"github.com/relaybus/relaybus/internal/bus/directory"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/bus/repository"
	mw "github.com/relaybus/relaybus/internal/http/api/middleware"
	"github.com/gin-gonic/gin"
)

type peerView struct {
	ID                  peer.ID  `json:"id"`
	Endpoint            string   `json:"endpoint"`
	IsUp                bool     `json:"is_up"`
	IsResponding        bool     `json:"is_responding"`
	IsPersistent        bool     `json:"is_persistent"`
	HasDebuggerAttached bool     `json:"has_debugger_attached"`
	TimeSinceLastPingMS int64    `json:"time_since_last_ping_ms"`
	StaticTypes         []string `json:"static_subscription_types"`
}

func viewOf(desc *peer.Descriptor, sinceLastPing int64) peerView {
	types := make([]string, 0, len(desc.StaticSubscriptions))
	for _, sub := range desc.StaticSubscriptions {
		types = append(types, sub.TypeID)
	}
	return peerView{
		ID:                  desc.Peer.ID,
		Endpoint:            desc.Peer.Endpoint,
		IsUp:                desc.Peer.IsUp,
		IsResponding:        desc.Peer.IsResponding,
		IsPersistent:        desc.IsPersistent,
		HasDebuggerAttached: desc.HasDebuggerAttached,
		TimeSinceLastPingMS: sinceLastPing,
		StaticTypes:         types,
	}
}

// GETPeers lists every peer known to the repository.
func GETPeers(c *gin.Context) {
	repo, ok := c.MustGet(mw.RepositoryKey).(repository.Repository)
	if !ok {
		slog.Error("peers: repository missing from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again later"})
		return
	}
	server, ok := c.MustGet(mw.DirectoryKey).(*directory.Server)
	if !ok {
		slog.Error("peers: directory missing from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again later"})
		return
	}

	descs, err := repo.GetPeers(c.Request.Context(), true)
	if err != nil {
		slog.Error("peers: failed listing peers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again later"})
		return
	}

	views := make([]peerView, 0, len(descs))
	for _, desc := range descs {
		views = append(views, viewOf(desc, server.TimeSinceLastPing(desc.Peer.ID).Milliseconds()))
	}
	c.JSON(http.StatusOK, gin.H{"total": len(views), "peers": views})
}

// GETPeer fetches a single peer by id.
func GETPeer(c *gin.Context) {
	repo, ok := c.MustGet(mw.RepositoryKey).(repository.Repository)
	if !ok {
		slog.Error("peers: repository missing from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again later"})
		return
	}
	server, ok := c.MustGet(mw.DirectoryKey).(*directory.Server)
	if !ok {
		slog.Error("peers: directory missing from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again later"})
		return
	}

	id := peer.ID(c.Param("id"))
	desc, found, err := repo.Get(c.Request.Context(), id)
	if err != nil {
		slog.Error("peers: failed fetching peer", "error", err, "peer_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again later"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
		return
	}
	c.JSON(http.StatusOK, viewOf(desc, server.TimeSinceLastPing(id).Milliseconds()))
}

// POSTPeerPing issues a liveness ping on behalf of id, resetting its
// time_since_last_ping clock the way an inbound heartbeat frame would.
func POSTPeerPing(c *gin.Context) {
	server, ok := c.MustGet(mw.DirectoryKey).(*directory.Server)
	if !ok {
		slog.Error("peers: directory missing from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again later"})
		return
	}
	id := peer.ID(c.Param("id"))
	server.PingPeerCommand(id)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
