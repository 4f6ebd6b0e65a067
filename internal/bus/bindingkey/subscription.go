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

package bindingkey

import (
	"sync"

	"github.com/mitchellh/hashstructure/v2"
)

// Subscription pairs a message type with the binding key a peer
// wants to receive that type through. Its structural hash is computed
// once and cached, since subscriptions are compared and deduplicated
// heavily by the matcher and the peer repository.
type Subscription struct {
	TypeID string
	Key    BindingKey

	hashOnce sync.Once
	hash     uint64
}

// NewSubscription builds a Subscription for typeID and key.
func NewSubscription(typeID string, key BindingKey) Subscription {
	return Subscription{TypeID: typeID, Key: key}
}

// Equal reports structural equality: same message type and same
// binding key tokens.
func (s *Subscription) Equal(other *Subscription) bool {
	if other == nil {
		return false
	}
	return s.TypeID == other.TypeID && s.Key.Equal(other.Key)
}

// Hash returns a memoized structural hash of the subscription,
// suitable for deduplication in sets and maps. It is computed at most
// once per Subscription value and is safe for concurrent use.
func (s *Subscription) Hash() uint64 {
	s.hashOnce.Do(func() {
		h, err := hashstructure.Hash(struct {
			TypeID string
			Parts  []string
		}{s.TypeID, s.Key.Parts()}, hashstructure.FormatV2, nil)
		if err != nil {
			// hashstructure only fails on unsupported field kinds; our
			// hashed shape is a string and a []string, which it always
			// supports, so this path is unreachable in practice.
			panic(err)
		}
		s.hash = h
	})
	return s.hash
}

// Matches reports whether routing content rc for message type typeID
// satisfies this subscription's binding key:
//
//   - a type mismatch never matches;
//   - an empty binding key matches any content of the right type;
//   - otherwise every binding key token is checked in order against
//     the routing content token at the same position: "#" matches the
//     remainder unconditionally, "*" matches any single token, and a
//     literal token must match exactly;
//   - if the key is exhausted before content runs out without ending
//     in "#", the match fails unless both ran out together.
func (s *Subscription) Matches(typeID string, rc RoutingContent) bool {
	if s.TypeID != typeID {
		return false
	}
	if s.Key.IsEmpty() {
		return true
	}

	partCount := s.Key.PartCount()
	for i := 0; i < partCount; i++ {
		token, _ := s.Key.GetPartToken(i)
		if token == TailWildcard {
			return true
		}
		contentToken, ok := rc.GetPartToken(i)
		if !ok {
			return false
		}
		if token == SingleWildcard {
			continue
		}
		if token != contentToken {
			return false
		}
	}
	return partCount == rc.PartCount()
}
