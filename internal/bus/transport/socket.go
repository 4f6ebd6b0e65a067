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
	"errors"
	"time"
)

// ErrReceiveTimeout is returned by no one: Socket.Receive reports a
// timed-out wait as (TransportMessage{}, false, nil), never as an
// error, per the socket contract's "expiry yields none, not an error"
// rule. It is exported only so adapters outside this package can
// recognize the same convention if they wrap a Socket.
var ErrReceiveTimeout = errors.New("transport: receive timed out")

// Socket is the transport adapter contract a bus peer binds to send
// and receive wire frames. A real implementation might be a TCP or
// websocket listener; Socket itself is transport-agnostic.
type Socket interface {
	// Bind starts listening (or connecting) and returns the endpoint
	// string other peers should address this socket by.
	Bind() (endpoint string, err error)

	// Send delivers msg to the peer at endpoint. Errors other than
	// "no message available" propagate to the caller.
	Send(endpoint string, msg TransportMessage) error

	// Receive blocks for up to timeout waiting for one inbound frame.
	// A timed-out wait yields (TransportMessage{}, false, nil); any
	// other error propagates and the boolean result is meaningless.
	Receive(timeout time.Duration) (TransportMessage, bool, error)

	// Unbind tears the socket down. It does not block waiting for
	// in-flight Receive calls; callers unblock them by observing
	// Unbind's effect on their next Receive timeout.
	Unbind() error
}
