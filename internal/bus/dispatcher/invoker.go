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

import (
	"context"

	"github.com/relaybus/relaybus/internal/bus/dispatch"
)

// handlerInvoker adapts one registered handler into a dispatch.Invoker,
// running the pipeInvocation protocol around every batch its owning
// dispatch.Queue hands it.
type handlerInvoker struct {
	handlerType string
	messageType string
	handler     any
	pipes       []Pipe
	mutations   []Mutation
	batchable   bool
	syncOnly    bool
	queue       *dispatch.Queue
}

func (h *handlerInvoker) Name() string { return h.handlerType + "." + h.messageType }

// IsAsync reports whether the registered handler implements
// AsyncHandler; the capability itself is the execution-mode signal, so
// there is no separate declared flag to drift out of sync with it.
func (h *handlerInvoker) IsAsync() bool {
	_, ok := h.handler.(AsyncHandler)
	return ok
}

func (h *handlerInvoker) ShouldRunSynchronously() bool { return h.syncOnly }

// CanMergeWith admits batching only between entries for the exact
// same handler and message type, and only when the handler opted in
// via Registration.Batchable.
func (h *handlerInvoker) CanMergeWith(other dispatch.Invoker) bool {
	o, ok := other.(*handlerInvoker)
	return ok && h.batchable && o.handlerType == h.handlerType && o.messageType == h.messageType
}

func (h *handlerInvoker) invocation() *pipeInvocation {
	return &pipeInvocation{
		handlerType: h.handlerType,
		messageType: h.messageType,
		handler:     h.handler,
		pipes:       h.pipes,
		mutations:   h.mutations,
	}
}

func (h *handlerInvoker) Invoke(ctx context.Context, messages []any) error {
	return h.invocation().run(ctx, messages, func(ctx context.Context) error {
		handler := h.handler.(Handler)
		var firstErr error
		for _, m := range messages {
			if err := handler.Handle(ctx, m); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}

func (h *handlerInvoker) InvokeAsync(ctx context.Context, messages []any) <-chan error {
	out := make(chan error, 1)
	go func() {
		out <- h.invocation().run(ctx, messages, func(ctx context.Context) error {
			return h.runAsync(ctx, messages)
		})
	}()
	return out
}

func (h *handlerInvoker) runAsync(ctx context.Context, messages []any) error {
	handler := h.handler.(AsyncHandler)
	for _, m := range messages {
		ch := handler.HandleAsync(ctx, m)
		if ch == nil {
			return &HandlerContractViolationError{HandlerType: h.handlerType, MessageTypeID: h.messageType}
		}
		if err := <-ch; err != nil {
			return err
		}
	}
	return nil
}
