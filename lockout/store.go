package lockout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spearfish/auth-gateway/autherr"
)

// Status is a snapshot of the server-side lockout state for one key.
type Status struct {
	Attempts    int
	LockedUntil time.Time
}

// Locked reports whether the lock holds at the given instant.
func (s Status) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Remaining is the wait left on the lock at the given instant.
func (s Status) Remaining(now time.Time) time.Duration {
	if !s.Locked(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// LockedError builds the AccountLocked rejection carrying the remaining
// wait.
func LockedError(status Status, now time.Time) *autherr.Error {
	remaining := status.Remaining(now)
	return autherr.Newf(autherr.CodeAccountLocked, "locked for another %s", remaining.Round(time.Second)).
		WithRetryAfter(remaining)
}

// Store is the server-side lockout state keyed by credential identity
// and origin, so a page reload cannot bypass the client-side tracker.
type Store interface {
	Check(ctx context.Context, key string) (Status, error)
	RecordFailure(ctx context.Context, key string) (Status, error)
	Reset(ctx context.Context, key string) error
}

// Key builds the store key from the submitted identity and the request
// origin.
func Key(email, origin string) string {
	return strings.ToLower(strings.TrimSpace(email)) + ":" + origin
}

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps lockout state in process memory. Suitable for a
// single gateway instance; use the Redis store when running more than one.
type InMemoryStore struct {
	mu        sync.Mutex
	states    map[string]*Status
	threshold int
	lockFor   time.Duration
	now       func() time.Time
}

type InMemoryStoreOption func(*InMemoryStore)

func WithStoreNowFunc(now func() time.Time) InMemoryStoreOption {
	return func(s *InMemoryStore) { s.now = now }
}

func NewInMemoryStore(options ...InMemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		states:    make(map[string]*Status),
		threshold: DefaultThreshold,
		lockFor:   DefaultLockDuration,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Check(_ context.Context, key string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[key]
	if !ok {
		return Status{}, nil
	}
	if !state.LockedUntil.IsZero() && !s.now().Before(state.LockedUntil) {
		delete(s.states, key)
		return Status{}, nil
	}
	return *state, nil
}

func (s *InMemoryStore) RecordFailure(_ context.Context, key string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[key]
	if !ok {
		state = &Status{}
		s.states[key] = state
	}
	state.Attempts++
	if state.Attempts >= s.threshold {
		state.LockedUntil = s.now().Add(s.lockFor)
	}
	return *state, nil
}

func (s *InMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}
