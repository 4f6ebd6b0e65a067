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

// Package peer holds the data model shared by the directory, the
// repository, and the matcher: peer identity, the liveness-carrying
// Peer value, and the process-wide message-type registry used to
// extract routing content from message payloads.
package peer

// ID is an opaque peer identifier, textually dot-separated tokens
// such as "Org.Service.0". Equality and hashing are case-sensitive on
// the string form; IDs are compared as plain strings, never
// normalized.
type ID string

// String returns the textual form of the peer id.
func (id ID) String() string {
	return string(id)
}

// Peer is the liveness-carrying identity of a bus participant.
type Peer struct {
	ID           ID
	Endpoint     string
	IsUp         bool
	IsResponding bool
}
