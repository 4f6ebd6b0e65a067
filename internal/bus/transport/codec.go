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

package transport

import (
	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"
)

// frameFieldCount is the number of top-level values in a frame: id,
// message_type_id, content, the four flattened originator fields,
// was_persisted, environment, and persistent_peer_ids.
const frameFieldCount = 10

// Write encodes msg as a msgp array record with a fixed field order:
// id, message_type_id, content, sender_id, sender_endpoint,
// sender_machine, initiator_user, was_persisted, environment,
// persistent_peer_ids.
func Write(msg TransportMessage) []byte {
	b := make([]byte, 0, 64+len(msg.Content))
	b = msgp.AppendArrayHeader(b, frameFieldCount)
	b = msgp.AppendBytes(b, msg.ID[:])
	b = msgp.AppendString(b, msg.MessageTypeID)
	b = msgp.AppendBytes(b, msg.Content)
	b = msgp.AppendString(b, msg.Originator.SenderID)
	b = msgp.AppendString(b, msg.Originator.SenderEndpoint)
	b = msgp.AppendString(b, msg.Originator.SenderMachine)
	b = msgp.AppendString(b, msg.Originator.InitiatorUser)
	b = msgp.AppendBool(b, msg.WasPersisted)
	b = msgp.AppendString(b, msg.Environment)
	b = msgp.AppendArrayHeader(b, uint32(len(msg.PersistentPeerIds)))
	for _, id := range msg.PersistentPeerIds {
		b = msgp.AppendString(b, id)
	}
	return b
}

// Read decodes a frame written by Write. A malformed frame yields a
// default-constructed TransportMessage and false, never an error or
// panic, per the transport's InvalidFrame contract.
func Read(data []byte) (TransportMessage, bool) {
	return read(data)
}

func read(data []byte) (msg TransportMessage, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			msg, ok = TransportMessage{}, false
		}
	}()

	sz, rest, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil || sz != frameFieldCount {
		return TransportMessage{}, false
	}

	idBytes, rest, err := msgp.ReadBytesBytes(rest, nil)
	if err != nil || len(idBytes) != 16 {
		return TransportMessage{}, false
	}
	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return TransportMessage{}, false
	}

	typeID, rest, err := msgp.ReadStringBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}

	content, rest, err := msgp.ReadBytesBytes(rest, nil)
	if err != nil {
		return TransportMessage{}, false
	}

	senderID, rest, err := msgp.ReadStringBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}
	senderEndpoint, rest, err := msgp.ReadStringBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}
	senderMachine, rest, err := msgp.ReadStringBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}
	initiatorUser, rest, err := msgp.ReadStringBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}

	wasPersisted, rest, err := msgp.ReadBoolBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}

	environment, rest, err := msgp.ReadStringBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}

	count, rest, err := msgp.ReadArrayHeaderBytes(rest)
	if err != nil {
		return TransportMessage{}, false
	}
	ids := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		var peerID string
		peerID, rest, err = msgp.ReadStringBytes(rest)
		if err != nil {
			return TransportMessage{}, false
		}
		ids = append(ids, peerID)
	}

	return TransportMessage{
		ID:            id,
		MessageTypeID: typeID,
		Content:       content,
		Originator: Originator{
			SenderID:       senderID,
			SenderEndpoint: senderEndpoint,
			SenderMachine:  senderMachine,
			InitiatorUser:  initiatorUser,
		},
		Environment:       environment,
		WasPersisted:      wasPersisted,
		PersistentPeerIds: ids,
	}, true
}
