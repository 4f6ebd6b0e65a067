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

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/db/models"
	"gorm.io/gorm"
)

// Gorm is the durable Repository backed by the configured SQL database,
// storing the row types of internal/db/models: peers, static
// subscriptions, dynamic subscriptions and last-applied timestamps.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an opened, migrated *gorm.DB as a Repository.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) AddOrUpdatePeer(ctx context.Context, desc *peer.Descriptor) error {
	row := models.Peer{
		ID:                  string(desc.Peer.ID),
		Endpoint:            desc.Peer.Endpoint,
		IsUp:                desc.Peer.IsUp,
		IsResponding:        desc.Peer.IsResponding,
		IsPersistent:        desc.IsPersistent,
		HasDebuggerAttached: desc.HasDebuggerAttached,
		TimestampUTC:        desc.TimestampUTC,
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to upsert peer %s: %w", desc.Peer.ID, err)
		}

		if err := tx.Where("peer_id = ?", row.ID).Delete(&models.StaticSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to clear static subscriptions for %s: %w", desc.Peer.ID, err)
		}

		for _, sub := range desc.StaticSubscriptions {
			staticRow := models.StaticSubscription{
				PeerID:     row.ID,
				TypeID:     sub.TypeID,
				BindingKey: sub.Key.String(),
			}
			if err := tx.Create(&staticRow).Error; err != nil {
				return fmt.Errorf("failed to store static subscription for %s: %w", desc.Peer.ID, err)
			}
		}

		return nil
	})
}

func (g *Gorm) Get(ctx context.Context, id peer.ID) (*peer.Descriptor, bool, error) {
	var row models.Peer
	err := g.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load peer %s: %w", id, err)
	}

	desc, err := g.loadDescriptor(ctx, row, true)
	if err != nil {
		return nil, false, err
	}
	return desc, true, nil
}

func (g *Gorm) GetPeers(ctx context.Context, loadDynamic bool) ([]*peer.Descriptor, error) {
	var rows []models.Peer
	if err := g.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list peers: %w", err)
	}

	descs := make([]*peer.Descriptor, 0, len(rows))
	for _, row := range rows {
		desc, err := g.loadDescriptor(ctx, row, loadDynamic)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

func (g *Gorm) loadDescriptor(ctx context.Context, row models.Peer, loadDynamic bool) (*peer.Descriptor, error) {
	desc := &peer.Descriptor{
		Peer: peer.Peer{
			ID:           peer.ID(row.ID),
			Endpoint:     row.Endpoint,
			IsUp:         row.IsUp,
			IsResponding: row.IsResponding,
		},
		IsPersistent:        row.IsPersistent,
		HasDebuggerAttached: row.HasDebuggerAttached,
		TimestampUTC:        row.TimestampUTC,
	}

	var staticRows []models.StaticSubscription
	if err := g.db.WithContext(ctx).Where("peer_id = ?", row.ID).Find(&staticRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load static subscriptions for %s: %w", row.ID, err)
	}
	desc.StaticSubscriptions = make([]bindingkey.Subscription, 0, len(staticRows))
	for _, s := range staticRows {
		desc.StaticSubscriptions = append(desc.StaticSubscriptions, bindingkey.NewSubscription(s.TypeID, bindingkey.Parse(s.BindingKey)))
	}

	if !loadDynamic {
		return desc, nil
	}

	var dynamicRows []models.DynamicSubscription
	if err := g.db.WithContext(ctx).Where("peer_id = ?", row.ID).Find(&dynamicRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load dynamic subscriptions for %s: %w", row.ID, err)
	}
	desc.DynamicSubscriptionsByType = make(map[string][]bindingkey.BindingKey)
	for _, d := range dynamicRows {
		desc.DynamicSubscriptionsByType[d.TypeID] = append(desc.DynamicSubscriptionsByType[d.TypeID], bindingkey.Parse(d.BindingKey))
	}

	return desc, nil
}

func (g *Gorm) RemovePeer(ctx context.Context, id peer.ID) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("peer_id = ?", string(id)).Delete(&models.DynamicSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to remove dynamic subscriptions for %s: %w", id, err)
		}
		if err := tx.Where("peer_id = ?", string(id)).Delete(&models.StaticSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to remove static subscriptions for %s: %w", id, err)
		}
		if err := tx.Where("peer_id = ?", string(id)).Delete(&models.SubscriptionTimestamp{}).Error; err != nil {
			return fmt.Errorf("failed to remove subscription timestamps for %s: %w", id, err)
		}
		if err := tx.Where("id = ?", string(id)).Delete(&models.Peer{}).Error; err != nil {
			return fmt.Errorf("failed to remove peer %s: %w", id, err)
		}
		return nil
	})
}

// checkAndAdvance reports whether ts is strictly newer than the last
// applied timestamp for (peerID, typeID, class), and if so records ts
// as the new last-applied value. Must run inside tx.
func checkAndAdvance(tx *gorm.DB, peerID, typeID, class string, ts time.Time) (bool, error) {
	var row models.SubscriptionTimestamp
	err := tx.Where("peer_id = ? AND type_id = ? AND class = ?", peerID, typeID, class).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.SubscriptionTimestamp{PeerID: peerID, TypeID: typeID, Class: class, AppliedAt: ts}
		if err := tx.Create(&row).Error; err != nil {
			return false, fmt.Errorf("failed to record subscription timestamp: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to load subscription timestamp: %w", err)
	}

	if !ts.After(row.AppliedAt) {
		return false, nil
	}

	row.AppliedAt = ts
	if err := tx.Save(&row).Error; err != nil {
		return false, fmt.Errorf("failed to advance subscription timestamp: %w", err)
	}
	return true, nil
}

func (g *Gorm) AddDynamicSubscriptionsForTypes(ctx context.Context, id peer.ID, ts time.Time, entries []peer.SubscriptionsForType) error {
	ts = RoundToMillis(ts)
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if len(entry.Bindings) == 0 {
				continue
			}
			advanced, err := checkAndAdvance(tx, string(id), entry.TypeID, "add", ts)
			if err != nil {
				return err
			}
			if !advanced {
				continue
			}
			if err := tx.Where("peer_id = ? AND type_id = ?", string(id), entry.TypeID).Delete(&models.DynamicSubscription{}).Error; err != nil {
				return fmt.Errorf("failed to clear dynamic subscriptions for %s/%s: %w", id, entry.TypeID, err)
			}
			for _, bk := range entry.Bindings {
				row := models.DynamicSubscription{PeerID: string(id), TypeID: entry.TypeID, BindingKey: bk.String(), LastAddedAt: &ts}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to store dynamic subscription for %s/%s: %w", id, entry.TypeID, err)
				}
			}
		}
		return nil
	})
}

func (g *Gorm) RemoveDynamicSubscriptionsForTypes(ctx context.Context, id peer.ID, ts time.Time, types []string) error {
	ts = RoundToMillis(ts)
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, typeID := range types {
			advanced, err := checkAndAdvance(tx, string(id), typeID, "remove", ts)
			if err != nil {
				return err
			}
			if !advanced {
				continue
			}
			if err := tx.Where("peer_id = ? AND type_id = ?", string(id), typeID).Delete(&models.DynamicSubscription{}).Error; err != nil {
				return fmt.Errorf("failed to remove dynamic subscriptions for %s/%s: %w", id, typeID, err)
			}
		}
		return nil
	})
}

func (g *Gorm) RemoveAllDynamicSubscriptionsForPeer(ctx context.Context, id peer.ID, ts time.Time) error {
	var types []string
	if err := g.db.WithContext(ctx).Model(&models.DynamicSubscription{}).
		Where("peer_id = ?", string(id)).Distinct().Pluck("type_id", &types).Error; err != nil {
		return fmt.Errorf("failed to list dynamic subscription types for %s: %w", id, err)
	}
	return g.RemoveDynamicSubscriptionsForTypes(ctx, id, ts, types)
}
