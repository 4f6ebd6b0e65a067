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

package peer

import (
	"time"

	"github.com/relaybus/relaybus/internal/bus/bindingkey"
)

// SubscriptionsForType pairs a message type with the set of binding
// keys a peer wants dynamic delivery through. An empty Bindings slice
// is a removal signal for that type, not "subscribe to nothing".
type SubscriptionsForType struct {
	TypeID   string
	Bindings []bindingkey.BindingKey
}

// Descriptor is the full record the repository keeps per peer: its
// identity and liveness flags, persistence and debugging metadata,
// the last-applied timestamp, and both subscription sources. The
// dynamic set is keyed by message type so monotonic timestamp checks
// can be applied per (peer, type).
type Descriptor struct {
	Peer                       Peer
	IsPersistent               bool
	HasDebuggerAttached        bool
	TimestampUTC               *time.Time
	StaticSubscriptions        []bindingkey.Subscription
	DynamicSubscriptionsByType map[string][]bindingkey.BindingKey
}

// Clone returns a deep-enough copy of d safe for independent
// mutation: the dynamic subscription map and its binding key slices
// are copied, so callers reading a repository snapshot never observe
// concurrent writer mutation.
func (d *Descriptor) Clone() *Descriptor {
	clone := &Descriptor{
		Peer:                d.Peer,
		IsPersistent:        d.IsPersistent,
		HasDebuggerAttached: d.HasDebuggerAttached,
	}
	if d.TimestampUTC != nil {
		ts := *d.TimestampUTC
		clone.TimestampUTC = &ts
	}
	if d.StaticSubscriptions != nil {
		clone.StaticSubscriptions = append([]bindingkey.Subscription(nil), d.StaticSubscriptions...)
	}
	if d.DynamicSubscriptionsByType != nil {
		clone.DynamicSubscriptionsByType = make(map[string][]bindingkey.BindingKey, len(d.DynamicSubscriptionsByType))
		for typeID, bindings := range d.DynamicSubscriptionsByType {
			clone.DynamicSubscriptionsByType[typeID] = append([]bindingkey.BindingKey(nil), bindings...)
		}
	}
	return clone
}

// EffectiveSubscriptions returns the deduplicated union of static and
// dynamic subscriptions, per the repository's merge rule: a dynamic
// empty-binding-key subscription coexists with a non-empty static
// subscription of the same type rather than replacing it.
func (d *Descriptor) EffectiveSubscriptions() []bindingkey.Subscription {
	seen := make(map[uint64]struct{}, len(d.StaticSubscriptions))
	out := make([]bindingkey.Subscription, 0, len(d.StaticSubscriptions))

	appendUnique := func(sub bindingkey.Subscription) {
		h := sub.Hash()
		if _, dup := seen[h]; dup {
			return
		}
		seen[h] = struct{}{}
		out = append(out, sub)
	}

	for _, sub := range d.StaticSubscriptions {
		appendUnique(sub)
	}
	for typeID, bindings := range d.DynamicSubscriptionsByType {
		for _, bk := range bindings {
			appendUnique(bindingkey.NewSubscription(typeID, bk))
		}
	}
	return out
}
