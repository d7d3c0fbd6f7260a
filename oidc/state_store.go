// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// stateStore keeps the outstanding authentication attempts between the login
// redirect and the callback. Load removes the state it returns.
type stateStore interface {
	Save(w http.ResponseWriter, r *http.Request, s *St) error
	Load(w http.ResponseWriter, r *http.Request, id string) (*St, error)
}

// memoryStateStore is the default store. It holds at most max states and
// evicts the oldest one when full.
type memoryStateStore struct {
	mu    sync.Mutex
	max   int
	now   func() time.Time
	order []string
	c     map[string]*St
}

var _ stateStore = (*memoryStateStore)(nil)

func newMemoryStateStore(max int, now func() time.Time) *memoryStateStore {
	if max < 1 {
		max = 1
	}
	return &memoryStateStore{
		max: max,
		now: now,
		c:   map[string]*St{},
	}
}

func (m *memoryStateStore) Save(_ http.ResponseWriter, _ *http.Request, s *St) error {
	const op = "memoryStateStore.Save"
	if s == nil {
		return fmt.Errorf("%s: state is nil: %w", op, ErrNilParameter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeExpired()
	for len(m.order) >= m.max {
		delete(m.c, m.order[0])
		m.order = m.order[1:]
	}
	m.c[s.ID] = s
	m.order = append(m.order, s.ID)
	return nil
}

func (m *memoryStateStore) Load(_ http.ResponseWriter, _ *http.Request, id string) (*St, error) {
	const op = "memoryStateStore.Load"
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.c[id]
	if !ok {
		return nil, fmt.Errorf("%s: state %q: %w", op, id, ErrNotFound)
	}
	m.remove(id)
	if s.IsExpired(WithNow(m.now)) {
		return nil, fmt.Errorf("%s: state %q: %w", op, id, ErrExpiredState)
	}
	return s, nil
}

// purgeExpired must be called with mu held.
func (m *memoryStateStore) purgeExpired() {
	for _, id := range append([]string(nil), m.order...) {
		if m.c[id].IsExpired(WithNow(m.now)) {
			m.remove(id)
		}
	}
}

// remove must be called with mu held.
func (m *memoryStateStore) remove(id string) {
	delete(m.c, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
