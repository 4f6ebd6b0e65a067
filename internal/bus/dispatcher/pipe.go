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

import "context"

// Pipe is an interceptor wrapped around every handler invocation.
// BeforeInvoke runs for every pipe in registration order and returns
// an opaque state value threaded through to AfterInvoke, which runs
// for every pipe whose BeforeInvoke succeeded, in reverse order, and
// always runs, faulted or not.
type Pipe interface {
	Name() string
	BeforeInvoke(ctx context.Context, messages []any) (state any, err error)
	AfterInvoke(ctx context.Context, state any, faulted bool, invokeErr error)
}
