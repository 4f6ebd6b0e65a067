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

package middleware

import (
	"github.com/relaybus/relaybus/internal/bus/directory"
	"github.com/relaybus/relaybus/internal/bus/repository"
	"github.com/gin-gonic/gin"
)

// DirectoryKey and RepositoryKey are the gin context keys the admin
// controllers read, set once at router construction time.
const (
	DirectoryKey  = "Directory"
	RepositoryKey = "Repository"
)

// DirectoryProvider injects the directory server into the gin context
// so controllers can issue commands without a package-level global.
func DirectoryProvider(server *directory.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DirectoryKey, server)
		c.Next()
	}
}

// RepositoryProvider injects the peer repository into the gin context
// so read-only controllers can list/query peers without going through
// the directory server's command surface.
func RepositoryProvider(repo repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(RepositoryKey, repo)
		c.Next()
	}
}
