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

package dispatcher

import "fmt"

// HandlerContractViolationError reports an async handler that returned
// a task that never started, typically a nil channel from
// AsyncHandler.HandleAsync. It is always surfaced as a faulted
// HandlerFailed outcome, never as a distinct error kind the caller
// must special-case.
type HandlerContractViolationError struct {
	HandlerType   string
	MessageTypeID string
}

func (e *HandlerContractViolationError) Error() string {
	return fmt.Sprintf("handler contract violation: %s.%s returned a task that never started", e.HandlerType, e.MessageTypeID)
}
