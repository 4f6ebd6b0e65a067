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
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/relaybus/relaybus/internal/bus/bindingkey"
)

// TypeRegistry interns MessageTypeId strings to the descriptor used
// to extract their routing content. A process builds one registry at
// startup and treats it as immutable from then on: handler
// registration populates it before the directory or dispatcher start
// consulting it.
type TypeRegistry struct {
	descriptors *xsync.Map[string, *bindingkey.MessageTypeDescriptor]
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{descriptors: xsync.NewMap[string, *bindingkey.MessageTypeDescriptor]()}
}

// Register associates typeID with descriptor. Re-registering the same
// typeID overwrites the previous descriptor; callers normally do this
// once per type during handler setup.
func (r *TypeRegistry) Register(typeID string, descriptor *bindingkey.MessageTypeDescriptor) {
	r.descriptors.Store(typeID, descriptor)
}

// Descriptor looks up the routing descriptor for typeID.
func (r *TypeRegistry) Descriptor(typeID string) (*bindingkey.MessageTypeDescriptor, bool) {
	return r.descriptors.Load(typeID)
}

// MustDescriptor is Descriptor but panics when typeID is unregistered.
// dispatcher.Dispatcher.Register calls this for every handler
// registration, so a handler bound to an unregistered message type
// fails fast at startup instead of silently never matching.
func (r *TypeRegistry) MustDescriptor(typeID string) *bindingkey.MessageTypeDescriptor {
	d, ok := r.Descriptor(typeID)
	if !ok {
		panic(fmt.Sprintf("peer: message type %q is not registered", typeID))
	}
	return d
}

// RoutingContentFor extracts the RoutingContent for msg, whose message
// type is typeID, using the registered descriptor. An unregistered
// type yields an empty routing content, which matches only
// subscriptions with an empty binding key.
func (r *TypeRegistry) RoutingContentFor(typeID string, msg any) bindingkey.RoutingContent {
	d, ok := r.Descriptor(typeID)
	if !ok {
		return bindingkey.RoutingContent{}
	}
	return bindingkey.FromMessage(msg, d)
}
