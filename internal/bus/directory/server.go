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
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/relaybus/relaybus/internal/bus/bindingkey"
	"github.com/relaybus/relaybus/internal/bus/matcher"
	"github.com/relaybus/relaybus/internal/bus/peer"
	"github.com/relaybus/relaybus/internal/bus/repository"
	"github.com/relaybus/relaybus/internal/config"
	"github.com/relaybus/relaybus/internal/kv"
	"github.com/relaybus/relaybus/internal/metrics"
	"github.com/relaybus/relaybus/internal/pubsub"
	"go.opentelemetry.io/otel"
)

// leaseTTLMultiple is how many liveness timeouts a peer-ownership lease
// outlives a missed ping by, so a lease a replica forgets to release
// still expires on its own shortly after the liveness sweep would have
// marked the peer not-responding anyway.
const leaseTTLMultiple = 3

// Infinity is the sentinel TimeSinceLastPing returns for a peer that
// has never registered, or that unregistered and has not registered
// again since.
const Infinity = time.Duration(math.MaxInt64)

// Server is the Peer Directory server: it owns the authoritative
// repository and matcher state for this replica, replicates
// registration/subscription/liveness events to its peers over PubSub,
// and replays the same events received from other replicas.
type Server struct {
	cfg      *config.Config
	repo     repository.Repository
	matcher  *matcher.Matcher
	types    *peer.TypeRegistry
	ps       pubsub.PubSub
	kv       kv.KV
	metrics  *metrics.Metrics
	selfID   string
	leaseTTL time.Duration

	mu            sync.Mutex
	lastPing      map[peer.ID]time.Time
	registered    map[peer.ID]bool
	notResponding map[peer.ID]bool

	listenersMu         sync.Mutex
	nextListenerID      uint64
	listeners           map[uint64]func(PeerUpdated)
	registeredListeners []func(*peer.Descriptor)

	sub    pubsub.Subscription
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewServer builds a directory server bound to repo and m, replicating
// its events over ps under a per-process identity selfID (used only to
// avoid double-applying a replica's own published events when they
// echo back through the subscription). store backs the per-peer
// ownership lease every Register/Unregister/Decommission/ping
// acquires, renews, and releases. met may be nil to run without
// directory metrics.
func NewServer(cfg *config.Config, selfID string, repo repository.Repository, m *matcher.Matcher, types *peer.TypeRegistry, ps pubsub.PubSub, store kv.KV, met *metrics.Metrics) *Server {
	s := &Server{
		cfg:           cfg,
		repo:          repo,
		matcher:       m,
		types:         types,
		ps:            ps,
		kv:            store,
		metrics:       met,
		selfID:        selfID,
		leaseTTL:      leaseTTLMultiple * cfg.Directory.LivenessTimeout,
		lastPing:      make(map[peer.ID]time.Time),
		registered:    make(map[peer.ID]bool),
		notResponding: make(map[peer.ID]bool),
		listeners:     make(map[uint64]func(PeerUpdated)),
		stopCh:        make(chan struct{}),
	}
	s.sub = ps.Subscribe(eventsTopic)
	s.wg.Add(1)
	go s.replicationLoop()
	return s
}

// Close stops the replication loop and releases the PubSub
// subscription. It does not close the repository or PubSub
// collaborators, which outlive a single directory server.
func (s *Server) Close() error {
	close(s.stopCh)
	err := s.sub.Close()
	s.wg.Wait()
	return err
}

// OnPeerUpdated registers fn to be called whenever a peer's state
// changes as a result of a directory event, local or replicated. The
// returned func removes fn; callers that never need to stop listening
// (most tests, the liveness sweep) may discard it.
func (s *Server) OnPeerUpdated(fn func(PeerUpdated)) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// OnRegistered registers fn to be called with the full descriptor
// immediately after a local Register call persists it — the "local
// Registered event" spec §4.4 describes, distinct from the
// cluster-wide PeerStarted broadcast.
func (s *Server) OnRegistered(fn func(*peer.Descriptor)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.registeredListeners = append(s.registeredListeners, fn)
}

func (s *Server) notifyUpdated(peerID peer.ID, action Action) {
	s.listenersMu.Lock()
	fns := make([]func(PeerUpdated), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn(PeerUpdated{PeerID: peerID, Action: action})
	}
}

func (s *Server) notifyRegistered(desc *peer.Descriptor) {
	s.listenersMu.Lock()
	fns := append([]func(*peer.Descriptor)(nil), s.registeredListeners...)
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn(desc)
	}
}

// Register persists desc, publishes PeerStarted to every replica,
// fires the local Registered event, and resets desc's ping clock to
// zero.
func (s *Server) Register(ctx context.Context, desc *peer.Descriptor) error {
	ctx, span := otel.Tracer("relaybus").Start(ctx, "directory.Register")
	defer span.End()

	desc.Peer.IsUp = true
	if err := s.applyPeerStarted(ctx, desc); err != nil {
		return fmt.Errorf("directory: register %s: %w", desc.Peer.ID, err)
	}
	s.acquireLease(ctx, desc.Peer.ID)
	s.recordRegistration("started")
	s.notifyRegistered(desc)

	if err := s.publish(eventEnvelope{Kind: eventKindPeerStarted, OriginID: s.selfID, PeerStarted: descriptorToWire(desc)}); err != nil {
		slog.Error("directory: failed to publish PeerStarted", "peer", desc.Peer.ID, "error", err)
	}
	return nil
}

// Unregister publishes PeerStopped, marks the descriptor down, and
// resets the ping clock to infinity.
func (s *Server) Unregister(ctx context.Context, id peer.ID) error {
	ctx, span := otel.Tracer("relaybus").Start(ctx, "directory.Unregister")
	defer span.End()

	if err := s.applyPeerStopped(ctx, id); err != nil {
		return fmt.Errorf("directory: unregister %s: %w", id, err)
	}
	s.releaseLease(ctx, id)
	s.recordRegistration("stopped")
	idStr := string(id)
	if err := s.publish(eventEnvelope{Kind: eventKindPeerStopped, OriginID: s.selfID, PeerStopped: &idStr}); err != nil {
		slog.Error("directory: failed to publish PeerStopped", "peer", id, "error", err)
	}
	return nil
}

// Decommission publishes PeerDecommissioned, which removes id's
// descriptor and every subscription it holds, static and dynamic,
// across every message type.
func (s *Server) Decommission(ctx context.Context, id peer.ID) error {
	ctx, span := otel.Tracer("relaybus").Start(ctx, "directory.Decommission")
	defer span.End()

	if err := s.applyPeerDecommissioned(ctx, id); err != nil {
		return fmt.Errorf("directory: decommission %s: %w", id, err)
	}
	s.releaseLease(ctx, id)
	s.recordRegistration("decommissioned")
	idStr := string(id)
	if err := s.publish(eventEnvelope{Kind: eventKindPeerDecommissioned, OriginID: s.selfID, PeerDecommissioned: &idStr}); err != nil {
		slog.Error("directory: failed to publish PeerDecommissioned", "peer", id, "error", err)
	}
	return nil
}

// UpdateSubscriptions partitions entries into adds (non-empty
// Bindings) and removes (empty or absent Bindings), applies both
// under a single synthesized timestamp, and publishes one
// PeerSubscriptionsForTypesUpdated event carrying the original,
// unpartitioned entry list so every replica applies the same
// partition spec §4.4 requires.
func (s *Server) UpdateSubscriptions(ctx context.Context, id peer.ID, entries []peer.SubscriptionsForType) error {
	ctx, span := otel.Tracer("relaybus").Start(ctx, "directory.UpdateSubscriptions")
	defer span.End()

	now := repository.RoundToMillis(time.Now().UTC())
	if err := s.applyPeerSubscriptionsForTypesUpdated(ctx, id, now, entries); err != nil {
		return fmt.Errorf("directory: update subscriptions for %s: %w", id, err)
	}

	wire := make([]SubscriptionsForTypeWire, len(entries))
	for i, e := range entries {
		wire[i] = subscriptionsForTypeToWire(e)
	}
	env := eventEnvelope{
		Kind:     eventKindPeerSubscriptionsForTypesUpdated,
		OriginID: s.selfID,
		PeerSubscriptionsForTypesUpdated: &subscriptionsUpdatedWire{
			PeerID:       string(id),
			TimestampUTC: now,
			Entries:      wire,
		},
	}
	if err := s.publish(env); err != nil {
		slog.Error("directory: failed to publish PeerSubscriptionsForTypesUpdated", "peer", id, "error", err)
	}
	return nil
}

// GetPeersHandlingMessage returns every unique peer whose effective
// subscription set matches (typeID, rc), consulting only static
// subscriptions when configured to disable dynamic ones for outgoing
// directory lookups.
func (s *Server) GetPeersHandlingMessage(ctx context.Context, typeID string, rc bindingkey.RoutingContent) ([]peer.Peer, error) {
	ctx, span := otel.Tracer("relaybus").Start(ctx, "directory.GetPeersHandlingMessage")
	defer span.End()
	start := time.Now()

	loadDynamic := !s.cfg.Directory.DisableDynamicSubscriptionsForDirectoryOutgoingMessages
	descs, err := s.repo.GetPeers(ctx, loadDynamic)
	if err != nil {
		return nil, fmt.Errorf("directory: get peers: %w", err)
	}

	seen := make(map[peer.ID]struct{})
	out := make([]peer.Peer, 0, len(descs))
	for _, desc := range descs {
		for _, sub := range desc.EffectiveSubscriptions() {
			if sub.Matches(typeID, rc) {
				if _, dup := seen[desc.Peer.ID]; !dup {
					seen[desc.Peer.ID] = struct{}{}
					out = append(out, desc.Peer)
				}
				break
			}
		}
	}

	if s.metrics != nil {
		result := "matched"
		if len(out) == 0 {
			result = "empty"
		}
		s.metrics.RecordDirectoryLookup(result, time.Since(start).Seconds())
	}
	return out, nil
}

// recordRegistration is a no-op if the server has no metrics recorder.
func (s *Server) recordRegistration(action string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDirectoryRegistration(action)
}

// PingPeerCommand resets id's last-ping instant to now and renews its
// ownership lease so a peer that keeps pinging never has its lease
// expire out from under it between liveness sweeps.
func (s *Server) PingPeerCommand(id peer.ID) {
	s.mu.Lock()
	registered := s.registered[id]
	if registered {
		s.lastPing[id] = time.Now()
	}
	s.mu.Unlock()
	if registered {
		s.renewLease(context.Background(), id)
	}
	if err := s.publish(eventEnvelope{Kind: eventKindPingPeer, OriginID: s.selfID, PingPeer: strPtr(string(id))}); err != nil {
		slog.Error("directory: failed to publish PingPeer", "peer", id, "error", err)
	}
}

// leaseKey is the KV key guarding ownership of id's registration. Its
// value is the id of the replica (selfID) currently holding the
// lease; other replicas use it to detect that a peer they're about to
// register is already owned elsewhere, per spec's replica coordination
// requirement.
func leaseKey(id peer.ID) string {
	return "relaybus:peer-lease:" + string(id)
}

// acquireLease claims id's ownership lease for this replica. A lease
// already held by another replica is logged, not rejected: the
// directory's monotonic-timestamp repository guard is what actually
// arbitrates concurrent registrations, so the lease here is advisory
// bookkeeping about which replica last accepted a Register for id, not
// a hard mutual-exclusion lock.
func (s *Server) acquireLease(ctx context.Context, id peer.ID) {
	key := leaseKey(id)
	if owner, err := s.kv.Get(ctx, key); err == nil && len(owner) > 0 && string(owner) != s.selfID {
		slog.Warn("directory: peer registered while leased by another replica", "peer", id, "previous_owner", string(owner))
	}
	if err := s.kv.Set(ctx, key, []byte(s.selfID)); err != nil {
		slog.Error("directory: failed to acquire peer lease", "peer", id, "error", err)
		return
	}
	if err := s.kv.Expire(ctx, key, s.leaseTTL); err != nil {
		slog.Error("directory: failed to set peer lease ttl", "peer", id, "error", err)
	}
}

// renewLease extends id's existing lease without changing its owner.
func (s *Server) renewLease(ctx context.Context, id peer.ID) {
	key := leaseKey(id)
	has, err := s.kv.Has(ctx, key)
	if err != nil {
		slog.Error("directory: failed to check peer lease", "peer", id, "error", err)
		return
	}
	if !has {
		s.acquireLease(ctx, id)
		return
	}
	if err := s.kv.Expire(ctx, key, s.leaseTTL); err != nil {
		slog.Error("directory: failed to renew peer lease", "peer", id, "error", err)
	}
}

// releaseLease drops id's ownership lease if this replica still holds
// it, leaving another replica's lease untouched. A Get error is
// treated as "nothing to release": the lease may have already expired
// or never been acquired (e.g. MakeKV backed by a store that rejected
// the initial Set), and that's not worth logging on every
// Unregister/Decommission.
func (s *Server) releaseLease(ctx context.Context, id peer.ID) {
	key := leaseKey(id)
	owner, err := s.kv.Get(ctx, key)
	if err != nil || string(owner) != s.selfID {
		return
	}
	if err := s.kv.Delete(ctx, key); err != nil {
		slog.Error("directory: failed to release peer lease", "peer", id, "error", err)
	}
}

// TimeSinceLastPing returns Infinity before registration and after
// unregistration; otherwise the elapsed time since the last ping or
// registration, whichever is most recent.
func (s *Server) TimeSinceLastPing(id peer.ID) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registered[id] {
		return Infinity
	}
	last, ok := s.lastPing[id]
	if !ok {
		return Infinity
	}
	return time.Since(last)
}

// RespondingPeerIDs returns the registered peers that just crossed the
// liveness timeout since the last sweep (newlyNotResponding), and the
// ones that pinged again after previously crossing it
// (newlyResponding). Peers whose state hasn't changed since the prior
// sweep are omitted, so repeated sweeps don't republish the same
// event every interval.
func (s *Server) RespondingPeerIDs(timeout time.Duration) (newlyResponding, newlyNotResponding []peer.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, isRegistered := range s.registered {
		if !isRegistered {
			continue
		}
		last, ok := s.lastPing[id]
		expired := !ok || time.Since(last) >= timeout
		wasNotResponding := s.notResponding[id]
		switch {
		case expired && !wasNotResponding:
			s.notResponding[id] = true
			newlyNotResponding = append(newlyNotResponding, id)
		case !expired && wasNotResponding:
			delete(s.notResponding, id)
			newlyResponding = append(newlyResponding, id)
		}
	}
	return newlyResponding, newlyNotResponding
}

// MarkResponding publishes PeerResponding for id.
func (s *Server) MarkResponding(ctx context.Context, id peer.ID) error {
	if err := s.applyPeerResponding(ctx, id); err != nil {
		return err
	}
	idStr := string(id)
	return s.publish(eventEnvelope{Kind: eventKindPeerResponding, OriginID: s.selfID, PeerResponding: &idStr})
}

// MarkNotResponding publishes PeerNotResponding for id.
func (s *Server) MarkNotResponding(ctx context.Context, id peer.ID) error {
	if err := s.applyPeerNotResponding(ctx, id); err != nil {
		return err
	}
	idStr := string(id)
	return s.publish(eventEnvelope{Kind: eventKindPeerNotResponding, OriginID: s.selfID, PeerNotResponding: &idStr})
}

func strPtr(s string) *string { return &s }

func (s *Server) publish(env eventEnvelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("directory: marshal event %s: %w", env.Kind, err)
	}
	if err := s.ps.Publish(eventsTopic, b); err != nil {
		return fmt.Errorf("directory: publish event %s: %w", env.Kind, err)
	}
	return nil
}

// replicationLoop applies every event published by another replica
// to this replica's local repository and matcher state. Events this
// replica published itself are skipped: the public method that
// published them already applied the mutation and notified listeners.
func (s *Server) replicationLoop() {
	defer s.wg.Done()
	ch := s.sub.Channel()
	ctx := context.Background()
	for {
		select {
		case <-s.stopCh:
			return
		case b, ok := <-ch:
			if !ok {
				return
			}
			var env eventEnvelope
			if err := json.Unmarshal(b, &env); err != nil {
				slog.Error("directory: malformed replicated event", "error", err)
				continue
			}
			if env.OriginID == s.selfID {
				continue
			}
			s.applyEnvelope(ctx, env)
		}
	}
}

func (s *Server) applyEnvelope(ctx context.Context, env eventEnvelope) {
	var err error
	switch env.Kind {
	case eventKindPeerStarted:
		if env.PeerStarted != nil {
			err = s.applyPeerStarted(ctx, descriptorFromWire(env.PeerStarted))
		}
	case eventKindPeerStopped:
		if env.PeerStopped != nil {
			err = s.applyPeerStopped(ctx, peer.ID(*env.PeerStopped))
		}
	case eventKindPeerDecommissioned:
		if env.PeerDecommissioned != nil {
			err = s.applyPeerDecommissioned(ctx, peer.ID(*env.PeerDecommissioned))
		}
	case eventKindPeerSubscriptionsForTypesUpdated:
		if u := env.PeerSubscriptionsForTypesUpdated; u != nil {
			entries := make([]peer.SubscriptionsForType, len(u.Entries))
			for i, e := range u.Entries {
				entries[i] = subscriptionsForTypeFromWire(e)
			}
			err = s.applyPeerSubscriptionsForTypesUpdated(ctx, peer.ID(u.PeerID), u.TimestampUTC, entries)
		}
	case eventKindPeerResponding:
		if env.PeerResponding != nil {
			err = s.applyPeerResponding(ctx, peer.ID(*env.PeerResponding))
		}
	case eventKindPeerNotResponding:
		if env.PeerNotResponding != nil {
			err = s.applyPeerNotResponding(ctx, peer.ID(*env.PeerNotResponding))
		}
	case eventKindPingPeer:
		if env.PingPeer != nil {
			s.mu.Lock()
			id := peer.ID(*env.PingPeer)
			if s.registered[id] {
				s.lastPing[id] = time.Now()
			}
			s.mu.Unlock()
		}
	}
	if err != nil {
		slog.Error("directory: failed to apply replicated event", "kind", env.Kind, "error", err)
	}
}

func (s *Server) applyPeerStarted(ctx context.Context, desc *peer.Descriptor) error {
	if err := s.repo.AddOrUpdatePeer(ctx, desc); err != nil {
		return fmt.Errorf("add or update peer: %w", err)
	}
	for _, sub := range desc.StaticSubscriptions {
		s.matcher.Add(desc.Peer.ID, sub, false)
	}

	s.mu.Lock()
	s.registered[desc.Peer.ID] = true
	s.lastPing[desc.Peer.ID] = time.Now()
	delete(s.notResponding, desc.Peer.ID)
	s.mu.Unlock()

	s.notifyUpdated(desc.Peer.ID, ActionStarted)
	return nil
}

func (s *Server) applyPeerStopped(ctx context.Context, id peer.ID) error {
	desc, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get peer: %w", err)
	}
	if ok {
		desc.Peer.IsUp = false
		desc.Peer.IsResponding = false
		if err := s.repo.AddOrUpdatePeer(ctx, desc); err != nil {
			return fmt.Errorf("add or update peer: %w", err)
		}
	}

	s.mu.Lock()
	s.registered[id] = false
	delete(s.lastPing, id)
	delete(s.notResponding, id)
	s.mu.Unlock()

	s.notifyUpdated(id, ActionStopped)
	return nil
}

func (s *Server) applyPeerDecommissioned(ctx context.Context, id peer.ID) error {
	desc, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get peer: %w", err)
	}
	if ok {
		seenTypes := make(map[string]struct{})
		for _, sub := range desc.StaticSubscriptions {
			if _, dup := seenTypes[sub.TypeID]; dup {
				continue
			}
			seenTypes[sub.TypeID] = struct{}{}
			s.matcher.RemoveAllForPeerAndType(id, sub.TypeID, false)
		}
		for typeID := range desc.DynamicSubscriptionsByType {
			s.matcher.RemoveAllForPeerAndType(id, typeID, true)
		}
	}
	if err := s.repo.RemovePeer(ctx, id); err != nil {
		return fmt.Errorf("remove peer: %w", err)
	}

	s.mu.Lock()
	delete(s.registered, id)
	delete(s.lastPing, id)
	delete(s.notResponding, id)
	s.mu.Unlock()

	s.notifyUpdated(id, ActionDecommissioned)
	return nil
}

func (s *Server) applyPeerSubscriptionsForTypesUpdated(ctx context.Context, id peer.ID, ts time.Time, entries []peer.SubscriptionsForType) error {
	var adds []peer.SubscriptionsForType
	var removeTypes []string
	for _, e := range entries {
		if len(e.Bindings) > 0 {
			adds = append(adds, e)
		} else {
			removeTypes = append(removeTypes, e.TypeID)
		}
	}

	if len(adds) > 0 {
		if err := s.repo.AddDynamicSubscriptionsForTypes(ctx, id, ts, adds); err != nil {
			return fmt.Errorf("add dynamic subscriptions: %w", err)
		}
	}
	if len(removeTypes) > 0 {
		if err := s.repo.RemoveDynamicSubscriptionsForTypes(ctx, id, ts, removeTypes); err != nil {
			return fmt.Errorf("remove dynamic subscriptions: %w", err)
		}
	}

	affected := make([]string, 0, len(entries))
	for _, e := range entries {
		affected = append(affected, e.TypeID)
	}
	if err := s.resyncDynamicMatcher(ctx, id, affected); err != nil {
		return fmt.Errorf("resync matcher: %w", err)
	}

	s.notifyUpdated(id, ActionUpdated)
	return nil
}

// resyncDynamicMatcher reconciles the matcher's dynamic tree for id
// against the repository's current state for each type in typeIDs.
// Re-deriving from the post-write repository snapshot, rather than
// from the entries that were attempted, makes this correct whether or
// not a given write was accepted or discarded by the repository's
// monotonic-timestamp guard.
func (s *Server) resyncDynamicMatcher(ctx context.Context, id peer.ID, typeIDs []string) error {
	desc, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get peer: %w", err)
	}
	for _, typeID := range typeIDs {
		var bindings []bindingkey.BindingKey
		if ok {
			bindings = desc.DynamicSubscriptionsByType[typeID]
		}
		s.matcher.ReplaceDynamicForType(id, typeID, bindings)
	}
	return nil
}

func (s *Server) applyPeerResponding(ctx context.Context, id peer.ID) error {
	desc, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get peer: %w", err)
	}
	if ok {
		desc.Peer.IsResponding = true
		if err := s.repo.AddOrUpdatePeer(ctx, desc); err != nil {
			return fmt.Errorf("add or update peer: %w", err)
		}
	}
	s.notifyUpdated(id, ActionUpdated)
	return nil
}

func (s *Server) applyPeerNotResponding(ctx context.Context, id peer.ID) error {
	desc, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get peer: %w", err)
	}
	if ok {
		desc.Peer.IsResponding = false
		if err := s.repo.AddOrUpdatePeer(ctx, desc); err != nil {
			return fmt.Errorf("add or update peer: %w", err)
		}
	}
	s.notifyUpdated(id, ActionUpdated)
	return nil
}

func descriptorToWire(desc *peer.Descriptor) *DescriptorWire {
	statics := make([]StaticSubscriptionWire, len(desc.StaticSubscriptions))
	for i, sub := range desc.StaticSubscriptions {
		statics[i] = StaticSubscriptionWire{TypeID: sub.TypeID, Binding: sub.Key.String()}
	}
	return &DescriptorWire{
		PeerID:              string(desc.Peer.ID),
		Endpoint:            desc.Peer.Endpoint,
		IsPersistent:        desc.IsPersistent,
		HasDebuggerAttached: desc.HasDebuggerAttached,
		StaticSubscriptions: statics,
	}
}

func descriptorFromWire(w *DescriptorWire) *peer.Descriptor {
	statics := make([]bindingkey.Subscription, len(w.StaticSubscriptions))
	for i, sub := range w.StaticSubscriptions {
		statics[i] = bindingkey.NewSubscription(sub.TypeID, bindingkey.Parse(sub.Binding))
	}
	return &peer.Descriptor{
		Peer: peer.Peer{
			ID:           peer.ID(w.PeerID),
			Endpoint:     w.Endpoint,
			IsUp:         true,
			IsResponding: true,
		},
		IsPersistent:        w.IsPersistent,
		HasDebuggerAttached: w.HasDebuggerAttached,
		StaticSubscriptions: statics,
	}
}

func subscriptionsForTypeToWire(e peer.SubscriptionsForType) SubscriptionsForTypeWire {
	bindings := make([]string, len(e.Bindings))
	for i, bk := range e.Bindings {
		bindings[i] = bk.String()
	}
	return SubscriptionsForTypeWire{TypeID: e.TypeID, Bindings: bindings}
}

func subscriptionsForTypeFromWire(w SubscriptionsForTypeWire) peer.SubscriptionsForType {
	bindings := make([]bindingkey.BindingKey, len(w.Bindings))
	for i, s := range w.Bindings {
		bindings[i] = bindingkey.Parse(s)
	}
	return peer.SubscriptionsForType{TypeID: w.TypeID, Bindings: bindings}
}
