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

package pubsub

import (
	"sync"

	"github.com/relaybus/relaybus/internal/config"
)

// inMemoryBroadcastBufferSize bounds how many unread messages a single
// subscriber channel can hold before Publish starts blocking on it,
// mirroring the backpressure a real broker would apply to a slow
// consumer.
const inMemoryBroadcastBufferSize = 64

func makeInMemoryPubSub(_ *config.Config) (PubSub, error) {
	return &inMemoryPubSub{topics: make(map[string][]chan []byte)}, nil
}

// inMemoryPubSub fans a published message out to every channel
// currently subscribed to its topic. It exists so a single process can
// exercise the same Publish/Subscribe contract the Redis-backed
// implementation provides, without requiring a Redis instance in
// tests.
type inMemoryPubSub struct {
	mu     sync.Mutex
	topics map[string][]chan []byte
	closed bool
}

func (ps *inMemoryPubSub) Publish(topic string, message []byte) error {
	ps.mu.Lock()
	subs := append([]chan []byte(nil), ps.topics[topic]...)
	ps.mu.Unlock()

	for _, ch := range subs {
		ch <- message
	}
	return nil
}

func (ps *inMemoryPubSub) Subscribe(topic string) Subscription {
	ch := make(chan []byte, inMemoryBroadcastBufferSize)

	ps.mu.Lock()
	ps.topics[topic] = append(ps.topics[topic], ch)
	ps.mu.Unlock()

	return &inMemorySubscription{ps: ps, topic: topic, ch: ch}
}

func (ps *inMemoryPubSub) Close() error {
	ps.mu.Lock()
	ps.closed = true
	ps.mu.Unlock()
	return nil
}

func (ps *inMemoryPubSub) unsubscribe(topic string, ch chan []byte) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	subs := ps.topics[topic]
	for i, c := range subs {
		if c == ch {
			ps.topics[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type inMemorySubscription struct {
	ps    *inMemoryPubSub
	topic string
	ch    chan []byte

	closeOnce sync.Once
}

func (s *inMemorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.ps.unsubscribe(s.topic, s.ch)
		close(s.ch)
	})
	return nil
}

func (s *inMemorySubscription) Channel() <-chan []byte {
	return s.ch
}
