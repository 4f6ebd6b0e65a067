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

package kv

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/relaybus/relaybus/internal/config"
)

func makeInMemoryKV(_ *config.Config) (KV, error) {
	return &inMemoryKV{kv: xsync.NewMap[string, *kvEntry]()}, nil
}

type kvEntry struct {
	mu     sync.Mutex
	values [][]byte
	ttl    time.Time // zero means "no expiry"
}

func (e *kvEntry) expired() bool {
	return !e.ttl.IsZero() && e.ttl.Before(time.Now())
}

type inMemoryKV struct {
	kv *xsync.Map[string, *kvEntry]
}

func (s *inMemoryKV) loadLive(key string) (*kvEntry, bool) {
	e, ok := s.kv.Load(key)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	expired := e.expired()
	e.mu.Unlock()
	if expired {
		s.kv.Delete(key)
		return nil, false
	}
	return e, true
}

func (s *inMemoryKV) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.loadLive(key)
	return ok, nil
}

func (s *inMemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.loadLive(key)
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.values) == 0 {
		return nil, fmt.Errorf("key %s has no values", key)
	}
	return e.values[0], nil
}

func (s *inMemoryKV) Set(_ context.Context, key string, value []byte) error {
	s.kv.Store(key, &kvEntry{values: [][]byte{value}})
	return nil
}

func (s *inMemoryKV) Delete(_ context.Context, key string) error {
	s.kv.Delete(key)
	return nil
}

func (s *inMemoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	e, ok := s.kv.Load(key)
	if !ok {
		return fmt.Errorf("key %s not found", key)
	}
	if ttl <= 0 {
		s.kv.Delete(key)
		return nil
	}
	e.mu.Lock()
	e.ttl = time.Now().Add(ttl)
	e.mu.Unlock()
	return nil
}

func (s *inMemoryKV) Scan(_ context.Context, _ uint64, match string, _ int64) ([]string, uint64, error) {
	keys := make([]string, 0)
	s.kv.Range(func(key string, e *kvEntry) bool {
		e.mu.Lock()
		expired := e.expired()
		e.mu.Unlock()
		if expired {
			s.kv.Delete(key)
			return true
		}
		if match == "" || matchesGlob(match, key) {
			keys = append(keys, key)
		}
		return true
	})
	return keys, 0, nil
}

// matchesGlob supports patterns with a single "*" wildcard (e.g.
// "scan:*"), not a full Redis glob.
func matchesGlob(pattern, key string) bool {
	if pattern == key {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
}

func (s *inMemoryKV) RPush(_ context.Context, key string, value []byte) (int64, error) {
	e, _ := s.kv.LoadOrStore(key, &kvEntry{})
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values = append(e.values, value)
	return int64(len(e.values)), nil
}

func (s *inMemoryKV) LDrain(_ context.Context, key string) ([][]byte, error) {
	e, ok := s.kv.LoadAndDelete(key)
	if !ok {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values, nil
}

func (s *inMemoryKV) Close() error {
	return nil
}
