// Package lock serializes per-user read-then-write sequences such as
// reward purchases and casino settlements.
package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/codequest-app/codequest/internal/domain"
)

// Memory is an in-process per-user lock. Slots are reference counted and
// dropped when no goroutine holds or waits on them.
type Memory struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemory creates an in-process locker.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

// Lock implements domain.Locker.
func (m *Memory) Lock(ctx context.Context, userID string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[userID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[userID] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				m.release(userID, s)
			})
		}, nil
	case <-ctx.Done():
		m.release(userID, s)
		return nil, fmt.Errorf("%w: %v", domain.ErrLockTimeout, ctx.Err())
	}
}

// Held returns how many users currently have a slot (held or waited on).
func (m *Memory) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *Memory) release(userID string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, userID)
	}
}
