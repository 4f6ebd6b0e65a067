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

// Package bindingkey implements the structured routing key used by
// subscriptions: an ordered sequence of literal, single-wildcard ("*"),
// and tail-wildcard ("#") tokens, plus the routing content extracted
// from a concrete message that a binding key is matched against.
package bindingkey

import (
	"encoding/json"
	"errors"
)

// SingleWildcard matches any single token at its position.
const SingleWildcard = "*"

// TailWildcard matches the remainder of a routing content; only valid
// as the final token of a binding key.
const TailWildcard = "#"

// ErrTailWildcardNotLast is returned by New when "#" appears anywhere
// but the final position.
var ErrTailWildcardNotLast = errors.New("bindingkey: \"#\" token must be the final token")

// BindingKey is a finite ordered sequence of tokens. The empty binding
// key matches every routing content for a given message type.
type BindingKey struct {
	parts []string
}

// Empty returns the binding key with no tokens, matching any routing
// content for its message type.
func Empty() BindingKey {
	return BindingKey{}
}

// New builds a BindingKey from ordered tokens, validating that "#"
// only appears as the last token.
func New(parts ...string) (BindingKey, error) {
	for i, p := range parts {
		if p == TailWildcard && i != len(parts)-1 {
			return BindingKey{}, ErrTailWildcardNotLast
		}
	}
	cp := make([]string, len(parts))
	copy(cp, parts)
	return BindingKey{parts: cp}, nil
}

// MustNew is New but panics on an invalid key; intended for tests and
// statically-known binding keys built at init time.
func MustNew(parts ...string) BindingKey {
	bk, err := New(parts...)
	if err != nil {
		panic(err)
	}
	return bk
}

// Parts returns the ordered token sequence. The returned slice must
// not be mutated by callers.
func (k BindingKey) Parts() []string {
	return k.parts
}

// IsEmpty reports whether the binding key has no tokens.
func (k BindingKey) IsEmpty() bool {
	return len(k.parts) == 0
}

// PartCount returns the number of tokens in the key.
func (k BindingKey) PartCount() int {
	return len(k.parts)
}

// GetPartToken returns the token at position i, or false if i is out
// of range.
func (k BindingKey) GetPartToken(i int) (string, bool) {
	if i < 0 || i >= len(k.parts) {
		return "", false
	}
	return k.parts[i], true
}

// EndsWithTailWildcard reports whether the key's final token is "#".
func (k BindingKey) EndsWithTailWildcard() bool {
	if len(k.parts) == 0 {
		return false
	}
	return k.parts[len(k.parts)-1] == TailWildcard
}

// Equal reports structural equality: same tokens in the same order.
func (k BindingKey) Equal(other BindingKey) bool {
	if len(k.parts) != len(other.parts) {
		return false
	}
	for i := range k.parts {
		if k.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

// String renders the binding key as a JSON array of its tokens, e.g.
// ["us","ca","#"]. A bare dot-join would be ambiguous for a literal
// token that itself contains a "." (spec §8's own example routing
// content is "u.name"), silently changing PartCount on round-trip; a
// JSON array keeps every token, including one containing ".", intact
// and keeps token order exactly as declared.
func (k BindingKey) String() string {
	parts := k.parts
	if parts == nil {
		parts = []string{}
	}
	b, err := json.Marshal(parts)
	if err != nil {
		// json.Marshal only fails on unsupported types or invalid
		// UTF-8; parts is always a []string of valid Go strings, so
		// this is unreachable in practice.
		panic(err)
	}
	return string(b)
}

// Parse is the inverse of String, used by the persistent repository to
// round-trip a binding key through a single text column and by the
// directory to decode a binding key off a replication envelope. An
// empty string parses to Empty(), not a single empty-string token. A
// value that isn't a valid JSON array (e.g. a pre-migration dot-joined
// column) is treated as a single literal token rather than dropped,
// so an old row still parses to *something* instead of silently
// losing data.
func Parse(s string) BindingKey {
	if s == "" {
		return Empty()
	}
	var parts []string
	if err := json.Unmarshal([]byte(s), &parts); err != nil {
		return BindingKey{parts: []string{s}}
	}
	if len(parts) == 0 {
		return Empty()
	}
	return BindingKey{parts: parts}
}
