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
	"time"

	"github.com/relaybus/relaybus/internal/bus/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySocketSendAndReceive(t *testing.T) {
	t.Parallel()
	net := transport.NewMemoryNetwork()

	a := transport.NewMemorySocket(net, "")
	b := transport.NewMemorySocket(net, "")
	defer a.Unbind()
	defer b.Unbind()

	aEndpoint, err := a.Bind()
	require.NoError(t, err)
	bEndpoint, err := b.Bind()
	require.NoError(t, err)
	assert.NotEqual(t, aEndpoint, bEndpoint)

	msg := transport.NewTransportMessage("widget.created", []byte("payload"), transport.Originator{SenderID: "a"})
	require.NoError(t, a.Send(bEndpoint, msg))

	received, ok, err := b.Receive(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, msg.ID, received.ID)
	assert.Equal(t, "payload", string(received.Content))
}

func TestMemorySocketReceiveTimesOutWithoutError(t *testing.T) {
	t.Parallel()
	net := transport.NewMemoryNetwork()
	s := transport.NewMemorySocket(net, "")
	defer s.Unbind()
	_, err := s.Bind()
	require.NoError(t, err)

	_, ok, err := s.Receive(10 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySocketSendToUnknownEndpointErrors(t *testing.T) {
	t.Parallel()
	net := transport.NewMemoryNetwork()
	s := transport.NewMemorySocket(net, "")
	defer s.Unbind()
	_, err := s.Bind()
	require.NoError(t, err)

	err = s.Send("memory://does-not-exist", transport.TransportMessage{})
	assert.Error(t, err)
}

func TestMemorySocketUnbindUnblocksReceive(t *testing.T) {
	t.Parallel()
	net := transport.NewMemoryNetwork()
	s := transport.NewMemorySocket(net, "")
	_, err := s.Bind()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok, err := s.Receive(5 * time.Second)
		assert.NoError(t, err)
		assert.False(t, ok)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Unbind())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unbind did not unblock Receive")
	}
}
