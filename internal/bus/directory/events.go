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

// Package directory implements the Peer Directory server: the
// replicated registration, subscription, and liveness service that
// lets any peer locate the peers responsible for handling a given
// message. Replication across a cluster of directory replicas rides
// on the shared PubSub collaborator, mirroring the way
// internal/dmr/hub fans call/state events out to every process
// holding a subscription.
package directory

import (
	"time"

	"github.com/relaybus/relaybus/internal/bus/peer"
)

// eventsTopic is the PubSub channel every directory replica publishes
// state-changing events to and subscribes on to replay peers'
// actions taken against a different replica.
const eventsTopic = "relaybus:directory:events"

// Action classifies a PeerUpdated notification. Responding and
// NotResponding both collapse to Updated, per spec.
type Action string

const (
	ActionStarted        Action = "Started"
	ActionStopped        Action = "Stopped"
	ActionDecommissioned Action = "Decommissioned"
	ActionUpdated        Action = "Updated"
)

// PeerUpdated is the local notification raised after any directory
// event handler runs; it carries the affected peer id and what kind
// of change occurred.
type PeerUpdated struct {
	PeerID peer.ID
	Action Action
}

// SubscriptionsForTypeWire is the wire-safe shape of
// peer.SubscriptionsForType: binding keys are rendered via
// bindingkey.String (a JSON array of tokens) so the envelope can
// round-trip through JSON without a custom (un)marshaler for
// bindingkey.BindingKey.
type SubscriptionsForTypeWire struct {
	TypeID   string   `json:"type_id"`
	Bindings []string `json:"bindings"`
}

// StaticSubscriptionWire is the wire-safe shape of a static
// subscription entry carried in a PeerStarted/RegisterPeerCommand
// envelope.
type StaticSubscriptionWire struct {
	TypeID  string `json:"type_id"`
	Binding string `json:"binding"`
}

// DescriptorWire is the wire-safe shape of peer.Descriptor broadcast
// with PeerStarted and RegisterPeerResponse.
type DescriptorWire struct {
	PeerID              string                   `json:"peer_id"`
	Endpoint            string                   `json:"endpoint"`
	IsPersistent        bool                     `json:"is_persistent"`
	HasDebuggerAttached bool                     `json:"has_debugger_attached"`
	StaticSubscriptions []StaticSubscriptionWire `json:"static_subscriptions"`
}

// eventEnvelope is the single wire shape published to eventsTopic;
// exactly one of its payload fields is set per Kind, modeling the
// spec's tagged-union directory events without a polymorphic decode.
type eventEnvelope struct {
	Kind     string `json:"kind"`
	OriginID string `json:"origin_id"`

	PeerStarted                      *DescriptorWire           `json:"peer_started,omitempty"`
	PeerStopped                      *string                   `json:"peer_stopped,omitempty"`
	PeerDecommissioned               *string                   `json:"peer_decommissioned,omitempty"`
	PeerSubscriptionsForTypesUpdated *subscriptionsUpdatedWire `json:"peer_subscriptions_for_types_updated,omitempty"`
	PeerResponding                   *string                   `json:"peer_responding,omitempty"`
	PeerNotResponding                *string                   `json:"peer_not_responding,omitempty"`
	PingPeer                         *string                   `json:"ping_peer,omitempty"`
}

// subscriptionsUpdatedWire is the wire shape of
// PeerSubscriptionsForTypesUpdated(peer_id, ts_utc, entries): spec
// §4.4 requires consumers to receive the adds and removes together,
// with the single timestamp the persisting replica used.
type subscriptionsUpdatedWire struct {
	PeerID       string                     `json:"peer_id"`
	TimestampUTC time.Time                  `json:"timestamp_utc"`
	Entries      []SubscriptionsForTypeWire `json:"entries"`
}

const (
	eventKindPeerStarted                      = "PeerStarted"
	eventKindPeerStopped                      = "PeerStopped"
	eventKindPeerDecommissioned               = "PeerDecommissioned"
	eventKindPeerSubscriptionsForTypesUpdated = "PeerSubscriptionsForTypesUpdated"
	eventKindPeerResponding                   = "PeerResponding"
	eventKindPeerNotResponding                = "PeerNotResponding"
	eventKindPingPeer                         = "PingPeer"
)
