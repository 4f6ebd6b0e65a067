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
	"fmt"
	"sync"

	"github.com/relaybus/relaybus/internal/bus/dispatch"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/config"
	"github.com/relaybus/relaybus/internal/metrics"
	"go.opentelemetry.io/otel"
)

// HandlerFilter decides whether a registered handler of handlerType is
// eligible to receive the current dispatch. The default filter admits
// every handler type.
type HandlerFilter func(handlerType string) bool

// Registration declares one handler's binding to a message type and
// its execution policy.
type Registration struct {
	// HandlerType identifies the handler for logging and the
	// HandlerFilter predicate.
	HandlerType string
	// MessageType is the MessageTypeId this handler is invoked for.
	MessageType string
	Handler     any
	// QueueName selects the dispatch.Queue this handler's invocations
	// run on. Empty uses the dispatcher's configured default queue.
	QueueName string
	// Pipes wrap every invocation of this handler, before_invoke in
	// order and after_invoke in reverse order.
	Pipes []Pipe
	// Mutations apply to the handler, in order, during
	// setup_for_invocation.
	Mutations []Mutation
	// Batchable allows the queue's worker to fold consecutive pending
	// entries for this exact handler and message type into one batch.
	Batchable bool
	// RunSyncOnly forces this handler's invocations to run inline on
	// the calling goroutine, bypassing its queue entirely.
	RunSyncOnly bool
}

// Dispatcher owns the MessageTypeId -> []HandlerInvoker mapping and a
// named dispatch.Queue per QueueName, created lazily on first
// registration and shared by every invoker registered against it.
type Dispatcher struct {
	cfg     *config.Config
	types   *peer.TypeRegistry
	metrics *metrics.Metrics
	mu      sync.RWMutex
	filter  HandlerFilter

	invokers map[string][]*handlerInvoker
	queues   map[string]*dispatch.Queue
}

// New returns a Dispatcher configured from cfg.Dispatch that admits
// every handler type until SetFilter narrows it. types is the same
// registry the directory server resolves routing content against; a
// process builds exactly one at startup and shares it with every
// subsystem that needs to validate or resolve a MessageTypeId. met is
// threaded into every dispatch.Queue this dispatcher creates; it may
// be nil to run without queue metrics.
func New(cfg *config.Config, types *peer.TypeRegistry, met *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		types:    types,
		metrics:  met,
		filter:   func(string) bool { return true },
		invokers: make(map[string][]*handlerInvoker),
		queues:   make(map[string]*dispatch.Queue),
	}
}

// SetFilter installs fn as the predicate Dispatch consults before
// handing a message to each registered handler type.
func (d *Dispatcher) SetFilter(fn HandlerFilter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn == nil {
		fn = func(string) bool { return true }
	}
	d.filter = fn
}

// Register binds r's handler to r.MessageType on its named queue,
// creating that queue with the configured default batch size if this
// is its first registration. r.MessageType must already be registered
// in the Dispatcher's TypeRegistry; Register panics otherwise, since a
// handler bound to a type the directory can never resolve routing
// content for is a startup wiring bug, not a runtime condition to
// handle gracefully.
func (d *Dispatcher) Register(r Registration) {
	d.types.MustDescriptor(r.MessageType)

	d.mu.Lock()
	defer d.mu.Unlock()

	queueName := r.QueueName
	if queueName == "" {
		queueName = d.cfg.Dispatch.DefaultQueueName
	}
	q, ok := d.queues[queueName]
	if !ok {
		q = dispatch.New(queueName, d.cfg.Dispatch.DefaultBatchSize, d.metrics)
		d.queues[queueName] = q
	}

	inv := &handlerInvoker{
		handlerType: r.HandlerType,
		messageType: r.MessageType,
		handler:     r.Handler,
		pipes:       r.Pipes,
		mutations:   r.Mutations,
		batchable:   r.Batchable,
		syncOnly:    r.RunSyncOnly,
		queue:       q,
	}
	d.invokers[r.MessageType] = append(d.invokers[r.MessageType], inv)
}

// Dispatch routes message to every handler registered for messageType
// and admitted by the current HandlerFilter, handing each to its
// queue's RunOrEnqueue. It returns immediately; the returned channel
// delivers the aggregated per-invoker errors once every invoker's
// queue has reported an outcome, so a caller that only wants
// fire-and-forget semantics can discard it.
func (d *Dispatcher) Dispatch(ctx context.Context, messageType string, message any) <-chan []error {
	ctx, span := otel.Tracer("relaybus").Start(ctx, "dispatcher.Dispatch")

	d.mu.RLock()
	invokers := append([]*handlerInvoker(nil), d.invokers[messageType]...)
	filter := d.filter
	d.mu.RUnlock()

	result := make(chan []error, 1)
	go func() {
		defer span.End()
		defer close(result)

		var (
			mu   sync.Mutex
			errs []error
			wg   sync.WaitGroup
		)
		for _, inv := range invokers {
			if !filter(inv.handlerType) {
				continue
			}
			wg.Add(1)
			go func(inv *handlerInvoker) {
				defer wg.Done()
				outcome := <-inv.queue.RunOrEnqueue(ctx, inv, message)
				if outcome.Err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", inv.Name(), outcome.Err))
					mu.Unlock()
				}
			}(inv)
		}
		wg.Wait()
		result <- errs
	}()
	return result
}

// Close stops every queue the dispatcher created, waiting for each to
// quiesce first.
func (d *Dispatcher) Close() {
	d.mu.RLock()
	queues := make([]*dispatch.Queue, 0, len(d.queues))
	for _, q := range d.queues {
		queues = append(queues, q)
	}
	d.mu.RUnlock()

	for _, q := range queues {
		q.Stop()
	}
}
