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

//nolint:golint,wrapcheck
package migration

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/relaybus/relaybus/internal/db/models"
	"gorm.io/gorm"
)

// Migrate brings the schema for the persistent peer repository up to
// date, creating the peer/subscription tables on first run.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202601010000",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.Peer{},
					&models.StaticSubscription{},
					&models.DynamicSubscription{},
					&models.SubscriptionTimestamp{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.SubscriptionTimestamp{},
					&models.DynamicSubscription{},
					&models.StaticSubscription{},
					&models.Peer{},
				)
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return err
	}

	return nil
}
