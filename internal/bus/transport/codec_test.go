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

package transport_test

import (
	"testing"

	"github.com/relaybus/relaybus/internal/bus/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()
	msg := transport.NewTransportMessage("widget.created", []byte{0x00, 0xFF, 0xAB}, transport.Originator{
		SenderID:       "peer-1",
		SenderEndpoint: "tcp://127.0.0.1:9000",
		SenderMachine:  "host-a",
		InitiatorUser:  "alice",
	})
	msg.Environment = "production"
	msg.WasPersisted = true
	msg.PersistentPeerIds = []string{"peer-2", "peer-3"}

	frame := transport.Write(msg)
	decoded, ok := transport.Read(frame)
	require.True(t, ok)
	assert.Equal(t, msg, decoded)
}

func TestCodecReadMalformedFrameReturnsFalseWithoutPanicking(t *testing.T) {
	t.Parallel()
	_, ok := transport.Read([]byte{0x01, 0x02, 0x03})
	assert.False(t, ok)

	_, ok = transport.Read(nil)
	assert.False(t, ok)
}
