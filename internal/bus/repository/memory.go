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

package repository

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/peer"
)

// record is the per-peer state held by InMemory. Static fields and
// the dynamic subscription map are guarded by the same mutex so a
// concurrent AddOrUpdatePeer can never observe a torn dynamic map.
type record struct {
	mu sync.Mutex

	peerVal             peer.Peer
	isPersistent        bool
	hasDebuggerAttached bool
	timestampUTC        *time.Time
	staticSubscriptions []bindingkey.Subscription

	dynamic    map[string][]bindingkey.BindingKey
	lastAdd    map[string]time.Time
	lastRemove map[string]time.Time
}

func newRecord() *record {
	return &record{
		dynamic:    make(map[string][]bindingkey.BindingKey),
		lastAdd:    make(map[string]time.Time),
		lastRemove: make(map[string]time.Time),
	}
}

// snapshot builds the merged descriptor. Must be called with r.mu held.
func (r *record) snapshot(loadDynamic bool) *peer.Descriptor {
	desc := &peer.Descriptor{
		Peer:                r.peerVal,
		IsPersistent:        r.isPersistent,
		HasDebuggerAttached: r.hasDebuggerAttached,
		StaticSubscriptions: append([]bindingkey.Subscription(nil), r.staticSubscriptions...),
	}
	if r.timestampUTC != nil {
		ts := *r.timestampUTC
		desc.TimestampUTC = &ts
	}
	if loadDynamic {
		desc.DynamicSubscriptionsByType = make(map[string][]bindingkey.BindingKey, len(r.dynamic))
		for typeID, bindings := range r.dynamic {
			desc.DynamicSubscriptionsByType[typeID] = append([]bindingkey.BindingKey(nil), bindings...)
		}
	}
	return desc
}

// InMemory is a process-local Repository backed by a concurrent map,
// suitable for tests and single-replica deployments. It never blocks
// on I/O.
type InMemory struct {
	records *xsync.Map[peer.ID, *record]
}

// NewInMemory returns an empty in-memory repository.
func NewInMemory() *InMemory {
	return &InMemory{records: xsync.NewMap[peer.ID, *record]()}
}

func (s *InMemory) getOrCreate(id peer.ID) *record {
	r, _ := s.records.LoadOrStore(id, newRecord())
	return r
}

// AddOrUpdatePeer implements Repository.
func (s *InMemory) AddOrUpdatePeer(_ context.Context, desc *peer.Descriptor) error {
	r := s.getOrCreate(desc.Peer.ID)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.peerVal = desc.Peer
	r.isPersistent = desc.IsPersistent
	r.hasDebuggerAttached = desc.HasDebuggerAttached
	if desc.TimestampUTC != nil {
		ts := RoundToMillis(*desc.TimestampUTC)
		r.timestampUTC = &ts
	}
	r.staticSubscriptions = append([]bindingkey.Subscription(nil), desc.StaticSubscriptions...)
	return nil
}

// Get implements Repository.
func (s *InMemory) Get(_ context.Context, id peer.ID) (*peer.Descriptor, bool, error) {
	r, ok := s.records.Load(id)
	if !ok {
		return nil, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(true), true, nil
}

// GetPeers implements Repository.
func (s *InMemory) GetPeers(_ context.Context, loadDynamic bool) ([]*peer.Descriptor, error) {
	out := make([]*peer.Descriptor, 0, s.records.Size())
	s.records.Range(func(_ peer.ID, r *record) bool {
		r.mu.Lock()
		out = append(out, r.snapshot(loadDynamic))
		r.mu.Unlock()
		return true
	})
	return out, nil
}

// RemovePeer implements Repository.
func (s *InMemory) RemovePeer(_ context.Context, id peer.ID) error {
	s.records.Delete(id)
	return nil
}

// AddDynamicSubscriptionsForTypes implements Repository.
func (s *InMemory) AddDynamicSubscriptionsForTypes(_ context.Context, id peer.ID, ts time.Time, entries []peer.SubscriptionsForType) error {
	ts = RoundToMillis(ts)
	r := s.getOrCreate(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		if len(entry.Bindings) == 0 {
			continue
		}
		if last, ok := r.lastAdd[entry.TypeID]; ok && !ts.After(last) {
			continue
		}
		r.dynamic[entry.TypeID] = append([]bindingkey.BindingKey(nil), entry.Bindings...)
		r.lastAdd[entry.TypeID] = ts
	}
	return nil
}

// RemoveDynamicSubscriptionsForTypes implements Repository.
func (s *InMemory) RemoveDynamicSubscriptionsForTypes(_ context.Context, id peer.ID, ts time.Time, types []string) error {
	ts = RoundToMillis(ts)
	r := s.getOrCreate(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, typeID := range types {
		if last, ok := r.lastRemove[typeID]; ok && !ts.After(last) {
			continue
		}
		delete(r.dynamic, typeID)
		r.lastRemove[typeID] = ts
	}
	return nil
}

// RemoveAllDynamicSubscriptionsForPeer implements Repository.
func (s *InMemory) RemoveAllDynamicSubscriptionsForPeer(_ context.Context, id peer.ID, ts time.Time) error {
	ts = RoundToMillis(ts)
	r := s.getOrCreate(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	for typeID := range r.dynamic {
		if last, ok := r.lastRemove[typeID]; ok && !ts.After(last) {
			continue
		}
		delete(r.dynamic, typeID)
		r.lastRemove[typeID] = ts
	}
	return nil
}
