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

// Package transport defines the wire frame carried between bus peers
// and the socket contract a real transport adapter must satisfy. The
// codec encodes TransportMessage the way internal/db/models.RawDMRPacket
// is encoded in the teacher: a msgp record built from the library's
// low-level Append/Read primitives rather than generated MarshalMsg
// methods, since the frame's shape (a PersistentPeerIds list appended
// out-of-band) doesn't map cleanly onto a single msgp struct tag set.
package transport

import "github.com/google/uuid"

// Originator identifies the peer and, where applicable, the end user
// that produced a TransportMessage.
type Originator struct {
	SenderID       string
	SenderEndpoint string
	SenderMachine  string
	InitiatorUser  string
}

// TransportMessage is the length-prefixed binary record exchanged over
// the wire transport.
type TransportMessage struct {
	ID                uuid.UUID
	MessageTypeID     string
	Content           []byte
	Originator        Originator
	Environment       string
	WasPersisted      bool
	PersistentPeerIds []string
}

// NewTransportMessage builds a TransportMessage with a fresh random ID.
func NewTransportMessage(messageTypeID string, content []byte, originator Originator) TransportMessage {
	return TransportMessage{
		ID:            uuid.New(),
		MessageTypeID: messageTypeID,
		Content:       content,
		Originator:    originator,
	}
}
