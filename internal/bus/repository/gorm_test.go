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

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/bus/repository"
	"github.com/relaybus/relaybus/internal/db/migration"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestGorm(t *testing.T) *repository.Gorm {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(db))
	return repository.NewGorm(db)
}

func TestGormAddOrUpdateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestGorm(t)

	desc := &peer.Descriptor{
		Peer: peer.Peer{ID: "peer-1", Endpoint: "tcp://peer-1:9000", IsUp: true},
		StaticSubscriptions: []bindingkey.Subscription{
			bindingkey.NewSubscription("FakeCommand", bindingkey.MustNew("10", "#")),
		},
	}
	require.NoError(t, repo.AddOrUpdatePeer(ctx, desc))

	got, ok, err := repo.Get(ctx, "peer-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tcp://peer-1:9000", got.Peer.Endpoint)
	require.Len(t, got.EffectiveSubscriptions(), 1)
}

func TestGormGetMissingPeer(t *testing.T) {
	repo := newTestGorm(t)
	_, ok, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGormDynamicSubscriptionMonotonicity(t *testing.T) {
	ctx := context.Background()
	repo := newTestGorm(t)
	require.NoError(t, repo.AddOrUpdatePeer(ctx, &peer.Descriptor{Peer: peer.Peer{ID: "peer-2"}}))

	t0 := repository.RoundToMillis(time.Now())
	older := t0.Add(-time.Minute)

	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "peer-2", t0, []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
	}))
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "peer-2", older, []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.MustNew("stale")}},
	}))

	got, ok, err := repo.Get(ctx, "peer-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []bindingkey.BindingKey{bindingkey.Empty()}, got.DynamicSubscriptionsByType["int"])
}

func TestGormRemovePeerClearsSubscriptions(t *testing.T) {
	ctx := context.Background()
	repo := newTestGorm(t)
	require.NoError(t, repo.AddOrUpdatePeer(ctx, &peer.Descriptor{Peer: peer.Peer{ID: "peer-3"}}))
	require.NoError(t, repo.AddDynamicSubscriptionsForTypes(ctx, "peer-3", time.Now(), []peer.SubscriptionsForType{
		{TypeID: "int", Bindings: []bindingkey.BindingKey{bindingkey.Empty()}},
	}))

	require.NoError(t, repo.RemovePeer(ctx, "peer-3"))

	_, ok, err := repo.Get(ctx, "peer-3")
	require.NoError(t, err)
	require.False(t, ok)
}
