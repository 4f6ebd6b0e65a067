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
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// memorySocketBuffer bounds how many unreceived frames a MemorySocket
// holds for a peer before Send blocks, mirroring a real socket's send
// buffer high-water mark.
const memorySocketBuffer = 64

var memorySocketSeq int64

// MemoryNetwork is a shared registry MemorySocket instances bind into
// and address each other through by endpoint string. It lets tests
// exercise the Socket contract, and the dispatcher/directory pipeline
// end to end, without a real network listener.
type MemoryNetwork struct {
	mu      sync.Mutex
	sockets map[string]*MemorySocket
}

// NewMemoryNetwork returns an empty MemoryNetwork.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{sockets: make(map[string]*MemorySocket)}
}

// MemorySocket is an in-memory Socket bound into a MemoryNetwork.
type MemorySocket struct {
	net      *MemoryNetwork
	endpoint string
	inbox    chan TransportMessage
	closed   chan struct{}

	closeOnce sync.Once
}

// NewMemorySocket returns a MemorySocket that registers itself under
// endpoint (or an auto-generated one, if endpoint is empty) when Bind
// is called.
func NewMemorySocket(net *MemoryNetwork, endpoint string) *MemorySocket {
	return &MemorySocket{
		net:      net,
		endpoint: endpoint,
		inbox:    make(chan TransportMessage, memorySocketBuffer),
		closed:   make(chan struct{}),
	}
}

// Bind registers s under its endpoint and returns it.
func (s *MemorySocket) Bind() (string, error) {
	if s.endpoint == "" {
		s.endpoint = fmt.Sprintf("memory://%d", atomic.AddInt64(&memorySocketSeq, 1))
	}
	s.net.mu.Lock()
	s.net.sockets[s.endpoint] = s
	s.net.mu.Unlock()
	return s.endpoint, nil
}

// Send delivers msg to the socket bound at endpoint, blocking if that
// socket's inbox is full.
func (s *MemorySocket) Send(endpoint string, msg TransportMessage) error {
	s.net.mu.Lock()
	target, ok := s.net.sockets[endpoint]
	s.net.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: no socket bound at %s", endpoint)
	}

	select {
	case target.inbox <- msg:
		return nil
	case <-target.closed:
		return fmt.Errorf("transport: socket at %s is closed", endpoint)
	}
}

// Receive waits up to timeout for one inbound frame, returning
// (TransportMessage{}, false, nil) on timeout or after Unbind, per the
// socket contract.
func (s *MemorySocket) Receive(timeout time.Duration) (TransportMessage, bool, error) {
	select {
	case msg, ok := <-s.inbox:
		if !ok {
			return TransportMessage{}, false, nil
		}
		return msg, true, nil
	case <-time.After(timeout):
		return TransportMessage{}, false, nil
	case <-s.closed:
		return TransportMessage{}, false, nil
	}
}

// Unbind removes s from its network and unblocks any pending Receive.
func (s *MemorySocket) Unbind() error {
	s.closeOnce.Do(func() {
		s.net.mu.Lock()
		if s.net.sockets[s.endpoint] == s {
			delete(s.net.sockets, s.endpoint)
		}
		s.net.mu.Unlock()
		close(s.closed)
	})
	return nil
}
