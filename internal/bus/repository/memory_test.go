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

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/bus/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryAddOrUpdatePeerNeverClearsDynamicSubscriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewInMemory()

	desc := &peer.Descriptor{Peer: peer.Peer{ID: "Abc.Service.0", Endpoint: "tcp://abc:42"}}
	require.NoError(t, repo.AddOrUpdatePeer(ctx, desc))

	t0 := time.Now()
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "Abc.Service.0", t0, []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
	}))

	require.NoError(t, repo.AddOrUpdatePeer(ctx, desc))

	got, ok, err := repo.Get(ctx, "Abc.Service.0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, got.DynamicSubscriptionsByType, "int")
}

// TestInMemoryEffectiveSubscriptionsConcreteScenario2 mirrors: register
// a peer with a static FakeCommand subscription, then apply a dynamic
// update {int, [empty]}. get(peer) must return both.
func TestInMemoryEffectiveSubscriptionsConcreteScenario2(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewInMemory()

	desc := &peer.Descriptor{
		Peer: peer.Peer{ID: "Abc.Service.0", Endpoint: "tcp://abc:42"},
		StaticSubscriptions: []bindingkey.Subscription{
			bindingkey.NewSubscription("FakeCommand", bindingkey.Empty()),
		},
	}
	require.NoError(t, repo.AddOrUpdatePeer(ctx, desc))
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "Abc.Service.0", time.Now(), []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
	}))

	got, ok, err := repo.Get(ctx, "Abc.Service.0")
	require.NoError(t, err)
	require.True(t, ok)

	effective := got.EffectiveSubscriptions()
	assert.Len(t, effective, 2)
}

// TestInMemoryTimestampMonotonicGuardConcreteScenario6 mirrors: Add(ts=T0)
// then Add(ts=T0-1min) is a no-op; Remove(ts=T0-1min) after Add(ts=T0)
// is also a no-op.
func TestInMemoryTimestampMonotonicGuardConcreteScenario6(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewInMemory()
	require.NoError(t, repo.AddOrUpdatePeer(ctx, &peer.Descriptor{Peer: peer.Peer{ID: "P"}}))

	t0 := time.Now()
	older := t0.Add(-time.Minute)

	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "P", t0, []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.MustNew("a")}},
	}))
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "P", older, []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.MustNew("b")}},
	}))

	got, _, err := repo.Get(ctx, "P")
	require.NoError(t, err)
	require.Contains(t, got.DynamicSubscriptionsByType, "int")
	assert.Equal(t, []bindingkey.BindingKey{bindingkey.MustNew("a")}, got.DynamicSubscriptionsByType["int"])

	require.NoError(t, repo.RemoveDynamicSubscriptionsForTypes(ctx, "P", older, []string{"int"}))
	got, _, err = repo.Get(ctx, "P")
	require.NoError(t, err)
	assert.Contains(t, got.DynamicSubscriptionsByType, "int", "a remove timestamped before the last add must be a no-op")
}

func TestInMemoryRemovePeerDeletesDynamicSubscriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewInMemory()
	require.NoError(t, repo.AddOrUpdatePeer(ctx, &peer.Descriptor{Peer: peer.Peer{ID: "P"}}))
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "P", time.Now(), []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
	}))

	require.NoError(t, repo.RemovePeer(ctx, "P"))

	_, ok, err := repo.Get(ctx, "P")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryGetPeersLoadDynamicFalseOmitsDynamicSubscriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewInMemory()
	require.NoError(t, repo.AddOrUpdatePeer(ctx, &peer.Descriptor{Peer: peer.Peer{ID: "P"}}))
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "P", time.Now(), []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
	}))

	descs, err := repo.GetPeers(ctx, false)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Nil(t, descs[0].DynamicSubscriptionsByType)
}

func TestInMemoryRemoveAllDynamicSubscriptionsForPeer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewInMemory()
	require.NoError(t, repo.AddOrUpdatePeer(ctx, &peer.Descriptor{Peer: peer.Peer{ID: "P"}}))
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "P", time.Now(), []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
		{TypeID: "double", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
	}))

	require.NoError(t, repo.RemoveAllDynamicSubscriptionsForPeer(ctx, "P", time.Now().Add(time.Second)))

	got, _, err := repo.Get(ctx, "P")
	require.NoError(t, err)
	assert.Empty(t, got.DynamicSubscriptionsByType)
}
