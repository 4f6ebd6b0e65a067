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

// Package models holds the gorm row types backing the persistent peer
// repository: one row per peer, plus the static and dynamic subscription
// rows upsert-applied the way internal/db/models/peer.go applies repeater
// updates in the teacher.
package models

import "time"

// Peer is the persisted row for a single bus peer's descriptor.
type Peer struct {
	ID                  string `gorm:"primaryKey"`
	Endpoint            string
	IsUp                bool
	IsResponding        bool
	IsPersistent        bool
	HasDebuggerAttached bool
	TimestampUTC        *time.Time
}

func (Peer) TableName() string {
	return "peers"
}

// StaticSubscription is a subscription declared in a peer's descriptor at
// registration time; it does not participate in timestamp-monotonic updates.
type StaticSubscription struct {
	ID         uint `gorm:"primaryKey"`
	PeerID     string `gorm:"index:idx_static_peer_type"`
	TypeID     string `gorm:"index:idx_static_peer_type"`
	BindingKey string
}

func (StaticSubscription) TableName() string {
	return "static_subscriptions"
}

// DynamicSubscription is one binding key of one (peer, type) dynamic
// subscription set, along with the timestamp of the add that produced it.
// The last-applied add and remove timestamps live in SubscriptionTimestamp;
// rows here are deleted when their (peer, type) set is replaced or removed.
type DynamicSubscription struct {
	ID           uint `gorm:"primaryKey"`
	PeerID       string `gorm:"index:idx_dynamic_peer_type"`
	TypeID       string `gorm:"index:idx_dynamic_peer_type"`
	BindingKey   string
	LastAddedAt  *time.Time
}

func (DynamicSubscription) TableName() string {
	return "dynamic_subscriptions"
}

// SubscriptionTimestamp records the last-applied timestamp for a
// (peer, type, operation class) tuple, enforcing the strict > monotonic
// rule across process restarts.
type SubscriptionTimestamp struct {
	ID        uint   `gorm:"primaryKey"`
	PeerID    string `gorm:"uniqueIndex:idx_ts_peer_type_class"`
	TypeID    string `gorm:"uniqueIndex:idx_ts_peer_type_class"`
	Class     string `gorm:"uniqueIndex:idx_ts_peer_type_class"` // "add" or "remove"
	AppliedAt time.Time
}

func (SubscriptionTimestamp) TableName() string {
	return "subscription_timestamps"
}
