package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// LockRegistry holds one single-writer slot per pool key. A slot lives
// only while someone holds or waits for it.
type LockRegistry struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int // holders plus waiters
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{slots: make(map[string]*lockSlot)}
}

func (r *LockRegistry) ref(key string) *lockSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		r.slots[key] = s
	}
	s.refs++
	return s
}

func (r *LockRegistry) unref(key string, s *lockSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(r.slots, key)
	}
}

// Acquire takes every key in sorted order. It gives up when ctx ends,
// with ABANDONED, or after timeout, with POOL_LOCK_TIMEOUT. A zero timeout
// waits on ctx alone. release is idempotent.
func (r *LockRegistry) Acquire(ctx context.Context, keys []string, timeout time.Duration) (release func(), err error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type heldSlot struct {
		key  string
		slot *lockSlot
	}
	held := make([]heldSlot, 0, len(sorted))
	unlock := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].slot.ch
			r.unref(held[i].key, held[i].slot)
		}
	}

	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		s := r.ref(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, heldSlot{key: key, slot: s})
		case <-waitCtx.Done():
			r.unref(key, s)
			unlock()
			if ctx.Err() != nil {
				return nil, apperror.New(apperror.CodeAbandoned,
					apperror.WithCause(ctx.Err()),
					apperror.WithContext(fmt.Sprintf("deadline reached waiting for pool %s", key)))
			}
			return nil, apperror.New(apperror.CodePoolLockTimeout,
				apperror.WithContext(fmt.Sprintf("pool %s busy after %s", key, timeout)))
		}
	}

	var once sync.Once
	return func() { once.Do(unlock) }, nil
}

// Held reports whether key is currently locked.
func (r *LockRegistry) Held(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[key]
	return ok && len(s.ch) == 1
}
