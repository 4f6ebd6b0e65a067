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

package dispatcher_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/dispatcher"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	cfg, err := configulator.New[config.Config]().Default()
	require.NoError(t, err)
	cfg.Dispatch.DefaultQueueName = "test"
	cfg.Dispatch.DefaultBatchSize = 8

	types := peer.NewTypeRegistry()
	types.Register("widget.created", bindingkey.NewDescriptor("widget.created"))

	d := dispatcher.New(&cfg, types, nil)
	t.Cleanup(d.Close)
	return d
}

// recordingHandler records every message it handles and can be made to
// fail on demand.
type recordingHandler struct {
	mu       sync.Mutex
	received []any
	fail     error
}

func (h *recordingHandler) Handle(_ context.Context, message any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, message)
	return h.fail
}

func (h *recordingHandler) snapshot() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]any(nil), h.received...)
}

func TestRegisterPanicsForUnregisteredMessageType(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	assert.Panics(t, func() {
		d.Register(dispatcher.Registration{HandlerType: "recorder", MessageType: "never.registered", Handler: &recordingHandler{}})
	})
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h := &recordingHandler{}
	d.Register(dispatcher.Registration{HandlerType: "recorder", MessageType: "widget.created", Handler: h})

	errs := <-d.Dispatch(context.Background(), "widget.created", "hello")
	assert.Empty(t, errs)
	assert.Equal(t, []any{"hello"}, h.snapshot())
}

func TestDispatchFansOutToEveryRegisteredHandler(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h1 := &recordingHandler{}
	h2 := &recordingHandler{}
	d.Register(dispatcher.Registration{HandlerType: "first", MessageType: "widget.created", Handler: h1})
	d.Register(dispatcher.Registration{HandlerType: "second", MessageType: "widget.created", Handler: h2, QueueName: "second"})

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	assert.Empty(t, errs)
	assert.Equal(t, []any{"payload"}, h1.snapshot())
	assert.Equal(t, []any{"payload"}, h2.snapshot())
}

func TestDispatchHandlerFilterExcludesHandlerType(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h1 := &recordingHandler{}
	h2 := &recordingHandler{}
	d.Register(dispatcher.Registration{HandlerType: "admitted", MessageType: "widget.created", Handler: h1})
	d.Register(dispatcher.Registration{HandlerType: "blocked", MessageType: "widget.created", Handler: h2})

	d.SetFilter(func(handlerType string) bool { return handlerType != "blocked" })

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	assert.Empty(t, errs)
	assert.Equal(t, []any{"payload"}, h1.snapshot())
	assert.Empty(t, h2.snapshot())
}

func TestDispatchReportsHandlerFailureWithoutStoppingQueue(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h := &recordingHandler{fail: assert.AnError}
	d.Register(dispatcher.Registration{HandlerType: "recorder", MessageType: "widget.created", Handler: h})

	errs := <-d.Dispatch(context.Background(), "widget.created", "first")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], assert.AnError)

	h.mu.Lock()
	h.fail = nil
	h.mu.Unlock()

	errs = <-d.Dispatch(context.Background(), "widget.created", "second")
	assert.Empty(t, errs)
	assert.Equal(t, []any{"first", "second"}, h.snapshot())
}

// orderedPipe records the order BeforeInvoke/AfterInvoke run in, so
// tests can assert before_invoke runs forward and after_invoke runs in
// reverse.
type orderedPipe struct {
	name  string
	trace *[]string
	mu    *sync.Mutex
}

func (p *orderedPipe) Name() string { return p.name }

func (p *orderedPipe) BeforeInvoke(_ context.Context, _ []any) (any, error) {
	p.mu.Lock()
	*p.trace = append(*p.trace, "before:"+p.name)
	p.mu.Unlock()
	return p.name + "-state", nil
}

func (p *orderedPipe) AfterInvoke(_ context.Context, state any, faulted bool, _ error) {
	p.mu.Lock()
	*p.trace = append(*p.trace, "after:"+state.(string))
	p.mu.Unlock()
}

func TestPipesRunBeforeInOrderAndAfterInReverse(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	var mu sync.Mutex
	var trace []string
	pipes := []dispatcher.Pipe{
		&orderedPipe{name: "outer", trace: &trace, mu: &mu},
		&orderedPipe{name: "inner", trace: &trace, mu: &mu},
	}

	h := &recordingHandler{}
	d.Register(dispatcher.Registration{HandlerType: "recorder", MessageType: "widget.created", Handler: h, Pipes: pipes})

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	require.Empty(t, errs)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"before:outer", "before:inner", "after:inner-state", "after:outer-state"}, trace)
}

// contextAwareHandler records the MessageContext it was handed via
// SetMessageContext.
type contextAwareHandler struct {
	mu  sync.Mutex
	mcs []dispatcher.MessageContext
}

func (h *contextAwareHandler) SetMessageContext(mc dispatcher.MessageContext) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mcs = append(h.mcs, mc)
}

func (h *contextAwareHandler) Handle(context.Context, any) error { return nil }

func TestSetupForInvocationPushesMessageContextToContextAwareHandler(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h := &contextAwareHandler{}
	d.Register(dispatcher.Registration{HandlerType: "aware", MessageType: "widget.created", Handler: h})

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	require.Empty(t, errs)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.mcs, 1)
	assert.Equal(t, "widget.created", h.mcs[0].MessageTypeID)
	assert.Equal(t, "payload", h.mcs[0].Message)
}

// mutationCountingHandler counts how many times its mutation fired.
type mutationCountingHandler struct {
	count int32
}

func (h *mutationCountingHandler) Handle(context.Context, any) error { return nil }

func TestMutationsApplyInRegistrationOrder(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h := &mutationCountingHandler{}
	var order []int
	var mu sync.Mutex
	mutations := []dispatcher.Mutation{
		func(any) { mu.Lock(); order = append(order, 1); mu.Unlock() },
		func(any) { mu.Lock(); order = append(order, 2); mu.Unlock() },
	}
	d.Register(dispatcher.Registration{HandlerType: "counter", MessageType: "widget.created", Handler: h, Mutations: mutations})

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	require.Empty(t, errs)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, order)
}

// asyncHandler is an AsyncHandler; nilTask forces the contract
// violation path.
type asyncHandler struct {
	nilTask bool
	delay   time.Duration
	calls   int32
}

func (h *asyncHandler) HandleAsync(ctx context.Context, _ any) <-chan error {
	atomic.AddInt32(&h.calls, 1)
	if h.nilTask {
		return nil
	}
	out := make(chan error, 1)
	go func() {
		if h.delay > 0 {
			time.Sleep(h.delay)
		}
		out <- nil
	}()
	return out
}

func TestDispatchRunsAsyncHandlerAndReportsContractViolation(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h := &asyncHandler{nilTask: true}
	d.Register(dispatcher.Registration{HandlerType: "async", MessageType: "widget.created", Handler: h})

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	require.Len(t, errs, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.calls))

	var violation *dispatcher.HandlerContractViolationError
	assert.ErrorAs(t, errs[0], &violation)
}

func TestDispatchAsyncHandlerSucceeds(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h := &asyncHandler{delay: 5 * time.Millisecond}
	d.Register(dispatcher.Registration{HandlerType: "async", MessageType: "widget.created", Handler: h})

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	assert.Empty(t, errs)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.calls))
}

func TestDispatchRunSyncOnlyBypassesQueueWorker(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	h := &recordingHandler{}
	d.Register(dispatcher.Registration{HandlerType: "inline", MessageType: "widget.created", Handler: h, RunSyncOnly: true})

	errs := <-d.Dispatch(context.Background(), "widget.created", "payload")
	assert.Empty(t, errs)
	assert.Equal(t, []any{"payload"}, h.snapshot())
}
