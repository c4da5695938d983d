package resolution

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Luca1234105/torren/internal/services/debrid"
)

// CredentialLimiter bounds the number of live remote resources per account.
// Entries are keyed by credential fingerprint and removed once unused.
type CredentialLimiter struct {
	mu       sync.Mutex
	capacity int64
	slots    map[string]*credentialSlot
}

type credentialSlot struct {
	sem  *semaphore.Weighted
	refs int
}

// NewCredentialLimiter creates a limiter allowing capacity concurrent holders per credential.
func NewCredentialLimiter(capacity int64) *CredentialLimiter {
	if capacity < 1 {
		capacity = 1
	}
	return &CredentialLimiter{
		capacity: capacity,
		slots:    make(map[string]*credentialSlot),
	}
}

// Acquire blocks until a slot for credential is free or ctx is done.
// The returned release func is safe to call more than once.
func (l *CredentialLimiter) Acquire(ctx context.Context, credential string) (func(), error) {
	key := debrid.Fingerprint(credential)

	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &credentialSlot{sem: semaphore.NewWeighted(l.capacity)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	if err := slot.sem.Acquire(ctx, 1); err != nil {
		l.drop(key, slot)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			slot.sem.Release(1)
			l.drop(key, slot)
		})
	}, nil
}

func (l *CredentialLimiter) drop(key string, slot *credentialSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// Len returns the number of credentials currently tracked.
func (l *CredentialLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
