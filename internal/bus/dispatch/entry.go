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

// Package dispatch implements the per-queue worker that consumes
// batched dispatch entries and runs them either synchronously inline
// or asynchronously with a cooperative scheduler that re-enqueues
// continuations on the owning queue.
package dispatch

import "context"

// Invoker is the capability a dispatch entry runs through. A batch
// head invoker decides the execution mode and the mergeability of
// following entries; see Queue.CanMergeWith.
type Invoker interface {
	// Name identifies the invoker for logging and queue-name based
	// reentrancy decisions; handlers on the same queue share a name.
	Name() string

	// IsAsync reports whether this invoker must run through
	// InvokeAsync rather than Invoke.
	IsAsync() bool

	// ShouldRunSynchronously forces RunOrEnqueue to execute inline
	// regardless of the caller's goroutine, bypassing the queue
	// entirely. Used for handlers marked to never hop queues.
	ShouldRunSynchronously() bool

	// CanMergeWith reports whether a following entry with invoker
	// other may be folded into the same batch as this one: same
	// handler, same execution mode, and the handler declares itself
	// batchable.
	CanMergeWith(other Invoker) bool

	// Invoke runs the synchronous pipe invocation over the batched
	// messages and returns the shared error, if any.
	Invoke(ctx context.Context, messages []any) error

	// InvokeAsync runs the asynchronous pipe invocation. ctx carries
	// the cooperative scheduler the continuation must post back to;
	// see Scheduler. The returned channel delivers exactly one error
	// (nil on success) when the task completes.
	InvokeAsync(ctx context.Context, messages []any) <-chan error
}

// Entry is either a dispatch entry (an invoker paired with one
// message) or an untyped action, modeled as a closed sum rather than
// a nullable-field struct so the worker never mistakes one for the
// other.
type Entry struct {
	dispatch *dispatchEntry
	action   func(ctx context.Context)
}

type dispatchEntry struct {
	invoker Invoker
	message any
	done    chan<- Outcome
}

// Outcome reports how a dispatch entry was handled.
type Outcome struct {
	Err error
}

// NewDispatchEntry builds an Entry carrying invoker and message. done,
// if non-nil, receives exactly one Outcome once the entry (or its
// batch) completes.
func NewDispatchEntry(invoker Invoker, message any, done chan<- Outcome) Entry {
	return Entry{dispatch: &dispatchEntry{invoker: invoker, message: message, done: done}}
}

// NewActionEntry builds an untyped action entry: the worker simply
// invokes fn with the queue's ambient context.
func NewActionEntry(fn func(ctx context.Context)) Entry {
	return Entry{action: fn}
}

// IsAction reports whether e is an action entry rather than a
// dispatch entry.
func (e Entry) IsAction() bool {
	return e.action != nil
}

// canMergeWith reports whether e may be folded into a batch headed by
// head. Action entries and type mismatches never merge.
func (e Entry) canMergeWith(head Entry) bool {
	if e.IsAction() || head.IsAction() {
		return false
	}
	return head.dispatch.invoker.CanMergeWith(e.dispatch.invoker)
}
