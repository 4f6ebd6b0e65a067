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

// Package repository implements the peer repository: the persistent
// mapping from peer id to peer descriptor, enforcing timestamp-
// monotonic dynamic subscription updates and the static/dynamic merge
// rule.
package repository

import (
	"context"
	"time"

	"github.com/relaybus/relaybus/internal/bus/peer"
)

// Repository is the contract implemented by both the in-memory store
// and the durable gorm-backed store. All timestamp arguments are
// rounded to millisecond granularity and compared with strict ">" at
// the boundary; see the package-level RoundToMillis helper.
type Repository interface {
	// AddOrUpdatePeer upserts desc's peer identity, liveness flags,
	// persistence/debugger metadata, and static subscriptions. It
	// never clears previously recorded dynamic subscriptions.
	AddOrUpdatePeer(ctx context.Context, desc *peer.Descriptor) error

	// Get returns the merged (static+dynamic) descriptor for id, or
	// ok=false if no such peer is known.
	Get(ctx context.Context, id peer.ID) (desc *peer.Descriptor, ok bool, err error)

	// GetPeers returns every known descriptor. When loadDynamic is
	// false, returned descriptors carry only static subscriptions.
	GetPeers(ctx context.Context, loadDynamic bool) ([]*peer.Descriptor, error)

	// RemovePeer deletes id's descriptor and all its dynamic
	// subscriptions.
	RemovePeer(ctx context.Context, id peer.ID) error

	// AddDynamicSubscriptionsForTypes sets, for each entry whose
	// Bindings is non-empty, the dynamic binding set for (id,
	// entry.TypeID) — but only if ts is strictly greater than the
	// last applied add-timestamp for that pair; otherwise the entry
	// is discarded as a stale update.
	AddDynamicSubscriptionsForTypes(ctx context.Context, id peer.ID, ts time.Time, entries []peer.SubscriptionsForType) error

	// RemoveDynamicSubscriptionsForTypes removes the dynamic binding
	// set for (id, typeID) for each typeID in types, iff ts is
	// strictly greater than the last applied remove-timestamp for
	// that pair.
	RemoveDynamicSubscriptionsForTypes(ctx context.Context, id peer.ID, ts time.Time, types []string) error

	// RemoveAllDynamicSubscriptionsForPeer applies the same monotonic
	// guard as RemoveDynamicSubscriptionsForTypes, but over every type
	// currently recorded for id.
	RemoveAllDynamicSubscriptionsForPeer(ctx context.Context, id peer.ID, ts time.Time) error
}

// RoundToMillis rounds t down to millisecond granularity in UTC, the
// boundary normalization every timestamp comparison in the repository
// relies on to avoid sub-millisecond aliasing between replicas.
func RoundToMillis(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
