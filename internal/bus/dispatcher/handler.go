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

// Package dispatcher implements the Message Dispatcher and its
// pipe-interceptor invocation protocol: resolving the handlers
// registered for an inbound message's type, running each through its
// own dispatch.Queue, and wrapping every handler call with the
// before/setup/after pipe sequence.
package dispatcher

import "context"

// Handler processes one message synchronously.
type Handler interface {
	Handle(ctx context.Context, message any) error
}

// AsyncHandler is implemented by handlers whose work suspends on I/O.
// The returned channel must deliver exactly one error (nil on
// success); a nil channel is a HandlerContractViolation, surfaced as a
// faulted HandlerFailed.
type AsyncHandler interface {
	HandleAsync(ctx context.Context, message any) <-chan error
}

// ContextAware is implemented by handler objects that want the
// MessageContext pushed onto them directly during setup_for_invocation
// rather than read back out of ctx.
type ContextAware interface {
	SetMessageContext(mc MessageContext)
}

// Mutation is applied to a handler in registration order during
// setup_for_invocation, after the ambient context and ContextAware
// hook are installed but before the handler runs.
type Mutation func(handler any)

// MessageContext is the ambient per-invocation context installed for
// the duration of a handler call.
type MessageContext struct {
	MessageTypeID string
	Message       any
}

type messageContextKey struct{}

// WithMessageContext returns a context carrying mc as the ambient
// message context.
func WithMessageContext(ctx context.Context, mc MessageContext) context.Context {
	return context.WithValue(ctx, messageContextKey{}, mc)
}

// MessageContextFromContext retrieves the MessageContext installed by
// setup_for_invocation, if any.
func MessageContextFromContext(ctx context.Context) (MessageContext, bool) {
	mc, ok := ctx.Value(messageContextKey{}).(MessageContext)
	return mc, ok
}
