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

package bindingkey_test

import (
	"testing"

	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/stretchr/testify/assert"
)

func TestNewRejectsTailWildcardNotLast(t *testing.T) {
	t.Parallel()

	_, err := bindingkey.New("a", "#", "b")
	assert.ErrorIs(t, err, bindingkey.ErrTailWildcardNotLast)
}

func TestNewAllowsTailWildcardLast(t *testing.T) {
	t.Parallel()

	key, err := bindingkey.New("a", "b", "#")
	assert.NoError(t, err)
	assert.Equal(t, 3, key.PartCount())
	assert.True(t, key.EndsWithTailWildcard())
}

func TestEmptyBindingKeyIsEmpty(t *testing.T) {
	t.Parallel()

	key := bindingkey.Empty()
	assert.True(t, key.IsEmpty())
	assert.Equal(t, 0, key.PartCount())
}

func TestBindingKeyEqual(t *testing.T) {
	t.Parallel()

	a := bindingkey.MustNew("us", "ca", "*")
	b := bindingkey.MustNew("us", "ca", "*")
	c := bindingkey.MustNew("us", "ny", "*")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestGetPartTokenOutOfRange(t *testing.T) {
	t.Parallel()

	key := bindingkey.MustNew("a")
	_, ok := key.GetPartToken(1)
	assert.False(t, ok)
}

func TestBindingKeyString(t *testing.T) {
	t.Parallel()

	key := bindingkey.MustNew("us", "ca", "#")
	assert.Equal(t, `["us","ca","#"]`, key.String())
}

func TestBindingKeyStringParseRoundTripsDottedLiteral(t *testing.T) {
	t.Parallel()

	key := bindingkey.MustNew("10", "u.name")
	round := bindingkey.Parse(key.String())

	assert.Equal(t, 2, round.PartCount())
	assert.True(t, key.Equal(round))

	tok, ok := round.GetPartToken(1)
	assert.True(t, ok)
	assert.Equal(t, "u.name", tok)
}

func TestParseEmptyStringIsEmpty(t *testing.T) {
	t.Parallel()

	key := bindingkey.Parse("")
	assert.True(t, key.IsEmpty())
}

func TestParseRoundTripsEmptyBindingKey(t *testing.T) {
	t.Parallel()

	round := bindingkey.Parse(bindingkey.Empty().String())
	assert.True(t, round.IsEmpty())
}
