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

package dispatch

import "context"

// Scheduler is the cooperative scheduler handle installed in the
// context for the duration of an asynchronous invocation. A
// continuation posts itself back through Post rather than resuming
// on an arbitrary goroutine, which is what makes the continuation
// land back on the owning queue's worker as an action entry.
type Scheduler interface {
	// Post re-enqueues fn as an action entry on the scheduler's
	// owning queue.
	Post(fn func(ctx context.Context))

	// QueueName returns the name of the queue this scheduler is
	// bound to, for reentrancy checks.
	QueueName() string
}

type schedulerCtxKey struct{}

// WithScheduler returns a context carrying sched as the ambient
// cooperative scheduler, consulted by await-points in an async
// handler to post continuations.
func WithScheduler(ctx context.Context, sched Scheduler) context.Context {
	return context.WithValue(ctx, schedulerCtxKey{}, sched)
}

// SchedulerFromContext retrieves the ambient scheduler installed by
// WithScheduler, if any.
func SchedulerFromContext(ctx context.Context) (Scheduler, bool) {
	sched, ok := ctx.Value(schedulerCtxKey{}).(Scheduler)
	return sched, ok
}

type queueNameCtxKey struct{}

// withCurrentQueueName marks ctx as executing on the named queue's
// worker, the mechanism RunOrEnqueue uses to detect reentrancy
// without relying on goroutine-local state.
func withCurrentQueueName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, queueNameCtxKey{}, name)
}

// CurrentQueueName reports the name of the queue whose worker is
// executing ctx's call chain, if any.
func CurrentQueueName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(queueNameCtxKey{}).(string)
	return name, ok
}
