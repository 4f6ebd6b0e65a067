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

// Package matcher implements the subscription matcher: a two-level
// index from message type to a token-position tree that yields, for
// an inbound (MessageTypeId, RoutingContent), every peer whose
// subscription matches, including wildcards.
package matcher

import (
	"sync"

	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/peer"
)

// Matcher is the subscription matcher. Each message type owns an
// independent pair of trees, one for static subscriptions and one for
// dynamic ones, so that a "static only" lookup never walks dynamic
// nodes.
type Matcher struct {
	mu    sync.RWMutex
	types map[string]*typeTrees
}

type typeTrees struct {
	static  *node
	dynamic *node
}

// node is one level of the token-position tree. literal holds
// exact-match children keyed by token; wildcard is the single "*"
// child; tailPeers holds peer ids terminating here via a "#" token;
// terminalPeers holds peer ids whose binding key ends exactly at this
// depth (including the empty binding key at the root).
type node struct {
	literal       map[string]*node
	wildcard      *node
	tailPeers     map[peer.ID]struct{}
	terminalPeers map[peer.ID]struct{}
}

func newNode() *node {
	return &node{}
}

// New returns an empty Matcher.
func New() *Matcher {
	return &Matcher{types: make(map[string]*typeTrees)}
}

func (m *Matcher) treesFor(typeID string) *typeTrees {
	if t, ok := m.types[typeID]; ok {
		return t
	}
	t := &typeTrees{static: newNode(), dynamic: newNode()}
	m.types[typeID] = t
	return t
}

// Add inserts peerID's subscription to sub.TypeID into the static or
// dynamic tree, descending one node per binding key token and
// attaching peerID at the terminal position.
func (m *Matcher) Add(peerID peer.ID, sub bindingkey.Subscription, dynamic bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trees := m.treesFor(sub.TypeID)
	root := trees.static
	if dynamic {
		root = trees.dynamic
	}
	insert(root, peerID, sub.Key, 0)
}

func insert(n *node, peerID peer.ID, key bindingkey.BindingKey, depth int) {
	if depth == key.PartCount() {
		if n.terminalPeers == nil {
			n.terminalPeers = make(map[peer.ID]struct{})
		}
		n.terminalPeers[peerID] = struct{}{}
		return
	}

	token, _ := key.GetPartToken(depth)
	if token == bindingkey.TailWildcard {
		if n.tailPeers == nil {
			n.tailPeers = make(map[peer.ID]struct{})
		}
		n.tailPeers[peerID] = struct{}{}
		return
	}
	if token == bindingkey.SingleWildcard {
		if n.wildcard == nil {
			n.wildcard = newNode()
		}
		insert(n.wildcard, peerID, key, depth+1)
		return
	}
	if n.literal == nil {
		n.literal = make(map[string]*node)
	}
	child, ok := n.literal[token]
	if !ok {
		child = newNode()
		n.literal[token] = child
	}
	insert(child, peerID, key, depth+1)
}

// Remove deletes peerID's subscription to sub.TypeID from the static
// or dynamic tree, pruning any node left with no peers and no
// children.
func (m *Matcher) Remove(peerID peer.ID, sub bindingkey.Subscription, dynamic bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trees, ok := m.types[sub.TypeID]
	if !ok {
		return
	}
	root := trees.static
	if dynamic {
		root = trees.dynamic
	}
	remove(root, peerID, sub.Key, 0)
}

// remove returns true if n became empty (no peers attached anywhere
// below it) and can be pruned by its parent.
func remove(n *node, peerID peer.ID, key bindingkey.BindingKey, depth int) bool {
	if n == nil {
		return true
	}

	if depth == key.PartCount() {
		delete(n.terminalPeers, peerID)
	} else {
		token, _ := key.GetPartToken(depth)
		switch token {
		case bindingkey.TailWildcard:
			delete(n.tailPeers, peerID)
		case bindingkey.SingleWildcard:
			if remove(n.wildcard, peerID, key, depth+1) {
				n.wildcard = nil
			}
		default:
			if child, ok := n.literal[token]; ok {
				if remove(child, peerID, key, depth+1) {
					delete(n.literal, token)
				}
			}
		}
	}

	return len(n.terminalPeers) == 0 && len(n.tailPeers) == 0 &&
		len(n.literal) == 0 && n.wildcard == nil
}

// RemoveAllDynamicForPeer removes every subscription peerID has in
// the dynamic tree for typeID. Static subscriptions are not touched:
// they are owned by the repository's static descriptor, not by
// dynamic update traffic.
func (m *Matcher) RemoveAllDynamicForPeer(peerID peer.ID, typeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trees, ok := m.types[typeID]
	if !ok {
		return
	}
	removeAllForPeer(trees.dynamic, peerID)
}

func removeAllForPeer(n *node, peerID peer.ID) bool {
	if n == nil {
		return true
	}
	delete(n.terminalPeers, peerID)
	delete(n.tailPeers, peerID)
	for token, child := range n.literal {
		if removeAllForPeer(child, peerID) {
			delete(n.literal, token)
		}
	}
	if n.wildcard != nil && removeAllForPeer(n.wildcard, peerID) {
		n.wildcard = nil
	}
	return len(n.terminalPeers) == 0 && len(n.tailPeers) == 0 &&
		len(n.literal) == 0 && n.wildcard == nil
}

// ReplaceDynamicForType overwrites peerID's entire dynamic
// subscription set for typeID with bindings, first purging whatever
// was there. The directory uses this to reconcile matcher state with
// the repository's monotonic-timestamp-guarded result: calling it
// with the repository's post-write snapshot is correct regardless of
// whether the write that triggered it was actually applied or
// silently discarded as stale.
func (m *Matcher) ReplaceDynamicForType(peerID peer.ID, typeID string, bindings []bindingkey.BindingKey) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trees := m.treesFor(typeID)
	removeAllForPeer(trees.dynamic, peerID)
	for _, bk := range bindings {
		insert(trees.dynamic, peerID, bk, 0)
	}
}

// RemoveAllForPeerAndType deletes every subscription peerID holds for
// typeID from either the static or dynamic tree, used when a peer is
// decommissioned and every trace of it must be purged.
func (m *Matcher) RemoveAllForPeerAndType(peerID peer.ID, typeID string, dynamic bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trees, ok := m.types[typeID]
	if !ok {
		return
	}
	root := trees.static
	if dynamic {
		root = trees.dynamic
	}
	removeAllForPeer(root, peerID)
}

// PeersHandling returns the deduplicated set of peer ids whose
// subscription to typeID matches rc, searching the static tree and,
// when includeDynamic is true, the dynamic tree as well.
func (m *Matcher) PeersHandling(typeID string, rc bindingkey.RoutingContent, includeDynamic bool) []peer.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trees, ok := m.types[typeID]
	if !ok {
		return nil
	}

	seen := make(map[peer.ID]struct{})
	search(trees.static, rc, 0, seen)
	if includeDynamic {
		search(trees.dynamic, rc, 0, seen)
	}

	out := make([]peer.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// search performs the DFS described by the matcher contract: at each
// level it follows both the literal branch matching the content token
// (if any) and the wildcard branch, a "#" node always succeeds
// unconditionally, and a terminal node succeeds exactly when depth
// equals the content length, except the root's terminal (the empty
// binding key), which succeeds for any content.
func search(n *node, rc bindingkey.RoutingContent, depth int, seen map[peer.ID]struct{}) {
	if n == nil {
		return
	}

	for id := range n.tailPeers {
		seen[id] = struct{}{}
	}

	if depth == 0 {
		for id := range n.terminalPeers {
			seen[id] = struct{}{}
		}
	}

	if depth == rc.PartCount() {
		for id := range n.terminalPeers {
			seen[id] = struct{}{}
		}
		return
	}

	token, _ := rc.GetPartToken(depth)
	if child, ok := n.literal[token]; ok {
		search(child, rc, depth+1, seen)
	}
	if n.wildcard != nil {
		search(n.wildcard, rc, depth+1, seen)
	}
}
