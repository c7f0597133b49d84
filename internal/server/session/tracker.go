// Package session tracks idle time of presented admin credentials and
// decides when a client must re-authenticate.
package session

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"
	"time"
)

// State is the outcome of recording activity for a credential.
type State int

const (
	// StateActive means the credential is within its idle window (or was unseen
	// and is now tracked).
	StateActive State = iota
	// StateExpired means the credential was idle past the timeout. Its entry has
	// been removed; the next presentation starts a fresh session.
	StateExpired
)

func (s State) String() string {
	if s == StateExpired {
		return "expired"
	}
	return "active"
}

// DefaultRetention is how long an idle entry is kept before the janitor drops it.
const DefaultRetention = 24 * time.Hour

// DefaultSweepInterval is used by Start when given a non-positive interval.
const DefaultSweepInterval = 5 * time.Minute

type key [sha256.Size]byte

// Tracker is the process-scoped session map. Keys are digests of the raw
// Authorization header so the credential itself is not held in memory.
type Tracker struct {
	mu        sync.Mutex
	lastSeen  map[key]time.Time
	timeout   time.Duration
	retention time.Duration
	now       func() time.Time
	done      chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithRetention sets how long idle entries survive the janitor. Values below
// the timeout are raised to the timeout.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

// NewTracker creates a tracker that expires a session after timeout of
// inactivity. Call Start to run the janitor.
func NewTracker(timeout time.Duration, opts ...Option) *Tracker {
	t := &Tracker{
		lastSeen:  make(map[key]time.Time),
		timeout:   timeout,
		retention: DefaultRetention,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.retention < t.timeout {
		t.retention = t.timeout
	}
	return t
}

// Timeout returns the idle timeout.
func (t *Tracker) Timeout() time.Duration {
	return t.timeout
}

// Touch records activity for credential. An entry idle for longer than the
// timeout is evicted and StateExpired returned; otherwise lastSeen is refreshed.
func (t *Tracker) Touch(credential string) State {
	k := sha256.Sum256([]byte(credential))
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastSeen[k]; ok && now.Sub(last) > t.timeout {
		delete(t.lastSeen, k)
		return StateExpired
	}
	t.lastSeen[k] = now
	return StateActive
}

// Forget drops the entry for credential (explicit logout).
func (t *Tracker) Forget(credential string) {
	k := sha256.Sum256([]byte(credential))
	t.mu.Lock()
	delete(t.lastSeen, k)
	t.mu.Unlock()
}

// Remaining reports time left in the idle window. ok is false for an unseen
// credential.
func (t *Tracker) Remaining(credential string) (remaining time.Duration, ok bool) {
	k := sha256.Sum256([]byte(credential))
	now := t.now()

	t.mu.Lock()
	last, ok := t.lastSeen[k]
	t.mu.Unlock()
	if !ok {
		return 0, false
	}

	remaining = t.timeout - now.Sub(last)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Len returns the number of tracked credentials.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}

// Prune removes entries idle for longer than the retention period and returns
// how many were removed.
func (t *Tracker) Prune() int {
	cutoff := t.now().Add(-t.retention)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for k, last := range t.lastSeen {
		if last.Before(cutoff) {
			delete(t.lastSeen, k)
			removed++
		}
	}
	return removed
}

// Clear drops every entry. Called at shutdown.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.lastSeen = make(map[key]time.Time)
	t.mu.Unlock()
}

// Start runs Prune every interval until ctx is cancelled. A non-positive
// interval is replaced by DefaultSweepInterval.
func (t *Tracker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(t.done)

		for {
			select {
			case <-ticker.C:
				if n := t.Prune(); n > 0 {
					slog.Debug("pruned idle sessions", "removed", n)
				}
			case <-ctx.Done():
				t.Clear()
				return
			}
		}
	}()
}

// Wait blocks until the janitor started by Start has stopped.
func (t *Tracker) Wait() {
	<-t.done
}
