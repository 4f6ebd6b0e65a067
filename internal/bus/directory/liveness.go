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

package directory

import (
	"context"
	"log/slog"
	"time"
)

// LivenessSweep walks every registered peer and publishes
// PeerNotResponding for any whose TimeSinceLastPing has reached
// timeout, and PeerResponding for any previously not-responding peer
// that has pinged since. It is registered as a periodic gocron job by
// internal/cmd the same way runRoot schedules the teacher's daily
// repeater/user database refresh.
func (s *Server) LivenessSweep(ctx context.Context, timeout time.Duration) {
	responding, notResponding := s.RespondingPeerIDs(timeout)

	for _, id := range notResponding {
		if err := s.MarkNotResponding(ctx, id); err != nil {
			slog.Error("directory: liveness sweep failed to mark peer not responding", "peer", id, "error", err)
		}
	}
	for _, id := range responding {
		if err := s.MarkResponding(ctx, id); err != nil {
			slog.Error("directory: liveness sweep failed to mark peer responding", "peer", id, "error", err)
		}
	}
}
