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

package peer_test

import (
	"testing"

	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// TestDescriptorEffectiveSubscriptionsConcreteScenario2 mirrors:
// register a peer with one static subscription on FakeCommand, then
// apply a dynamic update carrying {int, [BindingKey.Empty]}. The
// effective set must contain both FakeCommand(empty) and int(empty).
func TestDescriptorEffectiveSubscriptionsConcreteScenario2(t *testing.T) {
	t.Parallel()

	d := &peer.Descriptor{
		Peer: peer.Peer{ID: "Abc.Service.0", Endpoint: "tcp://abc:42", IsUp: true},
		StaticSubscriptions: []bindingkey.Subscription{
			bindingkey.NewSubscription("FakeCommand", bindingkey.Empty()),
		},
		DynamicSubscriptionsByType: map[string][]bindingkey.BindingKey{
			"int": {bindingkey.Empty()},
		},
	}

	effective := d.EffectiveSubscriptions()
	assert.Len(t, effective, 2)

	var sawFakeCommand, sawInt bool
	for _, sub := range effective {
		switch sub.TypeID {
		case "FakeCommand":
			sawFakeCommand = true
		case "int":
			sawInt = true
		}
	}
	assert.True(t, sawFakeCommand)
	assert.True(t, sawInt)
}

func TestDescriptorEffectiveSubscriptionsDeduplicates(t *testing.T) {
	t.Parallel()

	d := &peer.Descriptor{
		StaticSubscriptions: []bindingkey.Subscription{
			bindingkey.NewSubscription("FakeCommand", bindingkey.Empty()),
		},
		DynamicSubscriptionsByType: map[string][]bindingkey.BindingKey{
			"FakeCommand": {bindingkey.Empty()},
		},
	}

	effective := d.EffectiveSubscriptions()
	assert.Len(t, effective, 1)
}

func TestDescriptorCloneIsIndependent(t *testing.T) {
	t.Parallel()

	d := &peer.Descriptor{
		Peer: peer.Peer{ID: "Abc.Service.0"},
		DynamicSubscriptionsByType: map[string][]bindingkey.BindingKey{
			"int": {bindingkey.Empty()},
		},
	}
	clone := d.Clone()
	clone.DynamicSubscriptionsByType["int"] = append(clone.DynamicSubscriptionsByType["int"], bindingkey.MustNew("*"))

	assert.Len(t, d.DynamicSubscriptionsByType["int"], 1)
	assert.Len(t, clone.DynamicSubscriptionsByType["int"], 2)
}

func TestDescriptorCloneLeavesPeerIdentityUnchanged(t *testing.T) {
	t.Parallel()

	d := &peer.Descriptor{
		Peer: peer.Peer{ID: "Abc.Service.0", Endpoint: "tcp://abc:42", IsUp: true},
	}
	clone := d.Clone()

	if diff := cmp.Diff(d.Peer, clone.Peer); diff != "" {
		t.Fatalf("clone changed peer identity (-original +clone):\n%s", diff)
	}
}

func TestTypeRegistryRoutingContentForUnregisteredTypeIsEmpty(t *testing.T) {
	t.Parallel()

	reg := peer.NewTypeRegistry()
	rc := reg.RoutingContentFor("Unregistered", struct{}{})
	assert.Equal(t, 0, rc.PartCount())
}

func TestTypeRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	reg := peer.NewTypeRegistry()
	descriptor := bindingkey.NewDescriptor("FakeCommand", func(msg any) (any, bool) {
		return msg.(string), true
	})
	reg.Register("FakeCommand", descriptor)

	got, ok := reg.Descriptor("FakeCommand")
	assert.True(t, ok)
	assert.Same(t, descriptor, got)

	rc := reg.RoutingContentFor("FakeCommand", "hello")
	token, ok := rc.GetPartToken(0)
	assert.True(t, ok)
	assert.Equal(t, "hello", token)
}
