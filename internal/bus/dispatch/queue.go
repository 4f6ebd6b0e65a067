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

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaybus/relaybus/internal/metrics"
)

// state values for Queue.state.
const (
	stateStopped int32 = iota
	stateRunning
)

// Queue is a named single-consumer worker. Entries are pushed by any
// number of producer goroutines and consumed in FIFO order, batched
// up to BatchSize, by exactly one background worker goroutine.
type Queue struct {
	name      string
	batchSize int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Entry

	state int32

	inFlightAsync  int64
	asyncCompleted int64
	baseCtx        context.Context
	stopWorker     context.CancelFunc
	workerDone     chan struct{}

	metrics *metrics.Metrics
}

// DefaultBatchSize is used when New is called with batchSize <= 0.
const DefaultBatchSize = 64

// New starts a running Queue named name, pulling up to batchSize
// entries per worker iteration. met may be nil, in which case the
// queue runs without recording depth/batch-size/in-flight metrics;
// production wiring always supplies one.
func New(name string, batchSize int, met *metrics.Metrics) *Queue {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		name:       name,
		batchSize:  batchSize,
		state:      stateRunning,
		baseCtx:    ctx,
		stopWorker: cancel,
		workerDone: make(chan struct{}),
		metrics:    met,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Name returns the queue's name.
func (q *Queue) Name() string {
	return q.name
}

// IsRunning reports whether the queue is accepting and processing
// entries.
func (q *Queue) IsRunning() bool {
	return atomic.LoadInt32(&q.state) == stateRunning
}

// Enqueue appends e to the tail of the pending FIFO and wakes the
// worker. It is safe to call from any goroutine, including the
// queue's own worker (action-entry re-enqueue relies on this).
func (q *Queue) Enqueue(e Entry) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
	q.cond.Signal()
	q.recordDepth()
}

// recordDepth reports the current pending length, a no-op if the
// queue has no metrics recorder.
func (q *Queue) recordDepth() {
	if q.metrics == nil {
		return
	}
	q.mu.Lock()
	depth := len(q.pending)
	q.mu.Unlock()
	q.metrics.SetDispatchQueueDepth(q.name, float64(depth))
}

// recordAsyncInFlight reports the current in-flight async invocation
// count, a no-op if the queue has no metrics recorder.
func (q *Queue) recordAsyncInFlight() {
	if q.metrics == nil {
		return
	}
	q.metrics.SetDispatchAsyncInFlight(q.name, float64(atomic.LoadInt64(&q.inFlightAsync)))
}

// RunOrEnqueue implements the reentrancy rule: if ctx identifies the
// calling chain as already executing on this queue's worker, or
// invoker.ShouldRunSynchronously() is set, the dispatch runs inline on
// the calling goroutine; otherwise it is handed to Enqueue.
func (q *Queue) RunOrEnqueue(ctx context.Context, invoker Invoker, message any) <-chan Outcome {
	done := make(chan Outcome, 1)
	if name, ok := CurrentQueueName(ctx); (ok && name == q.name) || invoker.ShouldRunSynchronously() {
		done <- q.runInline(ctx, invoker, []any{message})
		close(done)
		return done
	}
	q.Enqueue(NewDispatchEntry(invoker, message, done))
	return done
}

func (q *Queue) runInline(ctx context.Context, invoker Invoker, messages []any) Outcome {
	ctx = withCurrentQueueName(ctx, q.name)
	if !invoker.IsAsync() {
		return Outcome{Err: invoker.Invoke(ctx, messages)}
	}

	atomic.AddInt64(&q.inFlightAsync, 1)
	q.recordAsyncInFlight()
	sched := &queueScheduler{q: q}
	ctx = WithScheduler(ctx, sched)
	errCh := invoker.InvokeAsync(ctx, messages)
	err := <-errCh
	atomic.AddInt64(&q.asyncCompleted, 1)
	atomic.AddInt64(&q.inFlightAsync, -1)
	q.recordAsyncInFlight()
	return Outcome{Err: err}
}

// run is the worker loop: pull up to batchSize mergeable entries,
// execute the batch head's invoker's execution mode, flush outcomes.
func (q *Queue) run() {
	defer close(q.workerDone)
	for {
		batch, stopping := q.nextBatch()
		if len(batch) == 0 {
			if stopping {
				return
			}
			continue
		}
		q.recordDepth()
		if q.metrics != nil {
			q.metrics.ObserveDispatchBatchSize(q.name, float64(len(batch)))
		}
		q.execute(batch)
		if stopping && q.isEmptyLocked() {
			return
		}
	}
}

func (q *Queue) nextBatch() (batch []Entry, stopping bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 {
		select {
		case <-q.baseCtx.Done():
			return nil, true
		default:
		}
		q.cond.Wait()
		select {
		case <-q.baseCtx.Done():
			if len(q.pending) == 0 {
				return nil, true
			}
		default:
		}
	}

	head := q.pending[0]
	batch = append(batch, head)
	i := 1
	for i < len(q.pending) && i < q.batchSize {
		if q.pending[i].canMergeWith(head) {
			batch = append(batch, q.pending[i])
			i++
			continue
		}
		break
	}
	q.pending = q.pending[i:]

	select {
	case <-q.baseCtx.Done():
		stopping = true
	default:
	}
	return batch, stopping
}

func (q *Queue) isEmptyLocked() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0
}

func (q *Queue) execute(batch []Entry) {
	if batch[0].IsAction() {
		ctx := withCurrentQueueName(q.baseCtx, q.name)
		batch[0].action(ctx)
		return
	}

	invoker := batch[0].dispatch.invoker
	messages := make([]any, len(batch))
	for i, e := range batch {
		messages[i] = e.dispatch.message
	}

	ctx := withCurrentQueueName(q.baseCtx, q.name)

	if !invoker.IsAsync() {
		err := invoker.Invoke(ctx, messages)
		for _, e := range batch {
			deliver(e.dispatch.done, Outcome{Err: err})
		}
		return
	}

	atomic.AddInt64(&q.inFlightAsync, 1)
	q.recordAsyncInFlight()
	sched := &queueScheduler{q: q}
	asyncCtx := WithScheduler(ctx, sched)
	errCh := invoker.InvokeAsync(asyncCtx, messages)
	go func() {
		err := <-errCh
		atomic.AddInt64(&q.asyncCompleted, 1)
		atomic.AddInt64(&q.inFlightAsync, -1)
		q.recordAsyncInFlight()
		for _, e := range batch {
			deliver(e.dispatch.done, Outcome{Err: err})
		}
	}()
}

func deliver(done chan<- Outcome, o Outcome) {
	if done == nil {
		return
	}
	done <- o
	close(done)
}

// queueScheduler is the Scheduler bound to one Queue; continuations
// posted through it land back on the same queue as action entries.
type queueScheduler struct {
	q *Queue
}

func (s *queueScheduler) Post(fn func(ctx context.Context)) {
	s.q.Enqueue(NewActionEntry(fn))
}

func (s *queueScheduler) QueueName() string {
	return s.q.name
}

// WaitUntilQuiescent spins with a 1ms sleep until the in-flight async
// counter is zero, no async batch has completed since the last
// observation, and the queue is empty. It returns true iff it
// observed at least one full cycle, i.e. some work was in progress
// when called.
func (q *Queue) WaitUntilQuiescent() bool {
	waited := false
	lastCompleted := atomic.LoadInt64(&q.asyncCompleted)
	for {
		inFlight := atomic.LoadInt64(&q.inFlightAsync)
		completed := atomic.LoadInt64(&q.asyncCompleted)
		empty := q.isEmptyLocked()
		if inFlight == 0 && completed == lastCompleted && empty {
			return waited
		}
		lastCompleted = completed
		waited = true
		time.Sleep(time.Millisecond)
	}
}

// Purge atomically drains every pending entry without running it and
// returns how many were dropped.
func (q *Queue) Purge() int {
	q.mu.Lock()
	n := len(q.pending)
	for _, e := range q.pending {
		if !e.IsAction() && e.dispatch.done != nil {
			close(e.dispatch.done)
		}
	}
	q.pending = nil
	q.mu.Unlock()
	q.recordDepth()
	return n
}

// Stop quiesces the queue, then seals it and joins the worker
// goroutine.
func (q *Queue) Stop() {
	if !atomic.CompareAndSwapInt32(&q.state, stateRunning, stateStopped) {
		return
	}
	q.WaitUntilQuiescent()
	q.stopWorker()
	q.cond.Signal()
	<-q.workerDone
}
