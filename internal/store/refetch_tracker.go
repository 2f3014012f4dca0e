package store

import (
	"sync"
	"time"
)

// RefetchState is the retry bookkeeping for one mint
type RefetchState struct {
	Attempts      int
	LastAttemptAt time.Time
}

// Passes driven by a ticker of the same period as minInterval can land a few
// milliseconds early. A tenth of the interval is tolerated as slack.
const intervalSlackDivisor = 10

// RefetchTracker bounds automatic metadata refetches per mint
type RefetchTracker struct {
	mu          sync.Mutex
	maxAttempts int
	minInterval time.Duration
	states      map[string]*RefetchState
}

// NewRefetchTracker creates a tracker allowing maxAttempts attempts per mint,
// spaced at least minInterval apart.
func NewRefetchTracker(maxAttempts int, minInterval time.Duration) *RefetchTracker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RefetchTracker{
		maxAttempts: maxAttempts,
		minInterval: minInterval,
		states:      make(map[string]*RefetchState),
	}
}

// TryAcquire records an attempt for mint if one is allowed at now.
// It returns false when the ceiling is reached or the last attempt is too recent.
// An attempt within minInterval/10 of the interval boundary is allowed.
func (t *RefetchTracker) TryAcquire(mint string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[mint]
	if !ok {
		st = &RefetchState{}
		t.states[mint] = st
	}
	if st.Attempts >= t.maxAttempts {
		return false
	}
	if !st.LastAttemptAt.IsZero() && now.Sub(st.LastAttemptAt) < t.minInterval-t.minInterval/intervalSlackDivisor {
		return false
	}

	st.Attempts++
	st.LastAttemptAt = now
	return true
}

// Freeze stops all further automatic attempts for mint
func (t *RefetchTracker) Freeze(mint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[mint]
	if !ok {
		st = &RefetchState{}
		t.states[mint] = st
	}
	st.Attempts = t.maxAttempts
}

// Exhausted reports whether mint reached the attempt ceiling
func (t *RefetchTracker) Exhausted(mint string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[mint]
	return ok && st.Attempts >= t.maxAttempts
}

// State returns a copy of the bookkeeping for mint
func (t *RefetchTracker) State(mint string) RefetchState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.states[mint]; ok {
		return *st
	}
	return RefetchState{}
}

// MaxAttempts returns the configured ceiling
func (t *RefetchTracker) MaxAttempts() int {
	return t.maxAttempts
}
