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

// Package api wires the admin/inspection REST endpoints and the peer
// event websocket onto a gin router.
package api

import (
	"github.com/relaybus/relaybus/internal/bus/directory"
	v1Controllers "github.com/relaybus/relaybus/internal/http/api/controllers/v1"
	v1PeersControllers "github.com/relaybus/relaybus/internal/http/api/controllers/v1/peers"
	websocketControllers "github.com/relaybus/relaybus/internal/http/api/websocket"
	"github.com/relaybus/relaybus/internal/config"
	busWebsocket "github.com/relaybus/relaybus/internal/http/websocket"
	"github.com/gin-gonic/gin"
)

// ApplyRoutes mounts the admin API and websocket relay on router. rl
// is applied to every route as a rate limit.
func ApplyRoutes(router *gin.Engine, cfg *config.Config, server *directory.Server, rl gin.HandlerFunc) {
	router.GET("/healthz", rl, v1Controllers.GETHealthz)

	apiV1 := router.Group("/api/v1")
	apiV1.Use(rl)
	v1(apiV1)

	ws := router.Group("/ws")
	ws.Use(rl)
	ws.GET("/peers", busWebsocket.CreateHandler(cfg, websocketControllers.CreatePeersWebsocket(server)))
}

func v1(group *gin.RouterGroup) {
	peers := group.Group("/peers")
	peers.GET("", v1PeersControllers.GETPeers)
	peers.GET("/:id", v1PeersControllers.GETPeer)
	peers.POST("/:id/ping", v1PeersControllers.POSTPeerPing)

	group.GET("/ping", v1Controllers.GETPing)
}
