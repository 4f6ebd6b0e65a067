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

import "fmt"

// RoutingContent is the ordered token sequence extracted from a
// concrete message, in the declared order of its routing members.
type RoutingContent struct {
	parts []string
}

// MemberExtractor pulls one routing-member value out of a message. ok
// is false when the member is absent, which FromMessage renders as an
// empty token rather than dropping the position.
type MemberExtractor func(msg any) (value any, ok bool)

// MessageTypeDescriptor lists, in declaration order, how to pull each
// routing member's value out of a message of a given type.
type MessageTypeDescriptor struct {
	TypeID  string
	Members []MemberExtractor
}

// NewDescriptor builds a MessageTypeDescriptor for typeID with the
// given ordered member extractors.
func NewDescriptor(typeID string, members ...MemberExtractor) *MessageTypeDescriptor {
	return &MessageTypeDescriptor{TypeID: typeID, Members: members}
}

// FromMessage extracts a RoutingContent from msg using descriptor's
// ordered member extractors. Enums are rendered by name (via
// fmt.Stringer), booleans by the canonical tokens "True"/"False", and
// everything else via its default string form; an absent member
// yields an empty token rather than shrinking the content.
func FromMessage(msg any, descriptor *MessageTypeDescriptor) RoutingContent {
	if descriptor == nil || len(descriptor.Members) == 0 {
		return RoutingContent{}
	}
	parts := make([]string, len(descriptor.Members))
	for i, extract := range descriptor.Members {
		v, ok := extract(msg)
		parts[i] = tokenize(v, ok)
	}
	return RoutingContent{parts: parts}
}

func tokenize(v any, ok bool) string {
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// Parts returns the ordered routing content tokens. The returned
// slice must not be mutated by callers.
func (c RoutingContent) Parts() []string {
	return c.parts
}

// PartCount returns the number of tokens in the routing content.
func (c RoutingContent) PartCount() int {
	return len(c.parts)
}

// GetPartToken returns the token at position i, or false if i is out
// of range.
func (c RoutingContent) GetPartToken(i int) (string, bool) {
	if i < 0 || i >= len(c.parts) {
		return "", false
	}
	return c.parts[i], true
}
