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

package dispatcher

import "context"

// pipeInvocation wraps one batch execution of a handler through its
// pipes, implementing the before_invoke / setup_for_invocation /
// handler / after_invoke protocol.
type pipeInvocation struct {
	handlerType string
	messageType string
	handler     any
	pipes       []Pipe
	mutations   []Mutation
}

// run executes before_invoke, setup_for_invocation, invoke, and
// after_invoke in that order. If a pipe's BeforeInvoke fails, the
// handler never runs, but every pipe that already ran BeforeInvoke
// still gets an AfterInvoke pass, faulted, in reverse order.
func (inv *pipeInvocation) run(ctx context.Context, messages []any, invoke func(ctx context.Context) error) error {
	states := make([]any, len(inv.pipes))
	for i, p := range inv.pipes {
		state, err := p.BeforeInvoke(ctx, messages)
		if err != nil {
			inv.runAfter(ctx, states[:i], true, err)
			return err
		}
		states[i] = state
	}

	ctx = inv.setupForInvocation(ctx, messages)
	err := invoke(ctx)

	inv.runAfter(ctx, states, err != nil, err)
	return err
}

// setupForInvocation installs the ambient MessageContext, pushes it
// into the handler directly if it implements ContextAware, then
// applies every registered mutation in order. Single-message batches
// carry their message on MessageContext.Message; merged batches leave
// it nil since no one message is "the" message.
func (inv *pipeInvocation) setupForInvocation(ctx context.Context, messages []any) context.Context {
	var msg any
	if len(messages) == 1 {
		msg = messages[0]
	}
	mc := MessageContext{MessageTypeID: inv.messageType, Message: msg}

	ctx = WithMessageContext(ctx, mc)
	if aware, ok := inv.handler.(ContextAware); ok {
		aware.SetMessageContext(mc)
	}
	for _, mutate := range inv.mutations {
		mutate(inv.handler)
	}
	return ctx
}

func (inv *pipeInvocation) runAfter(ctx context.Context, states []any, faulted bool, err error) {
	for i := len(states) - 1; i >= 0; i-- {
		inv.pipes[i].AfterInvoke(ctx, states[i], faulted, err)
	}
}
