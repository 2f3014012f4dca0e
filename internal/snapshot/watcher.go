package snapshot

import (
	"sync"

	"poolwatch/internal/models"
)

// Watcher remembers which mints earlier snapshots carried
type Watcher struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewWatcher creates an empty watcher
func NewWatcher() *Watcher {
	return &Watcher{seen: make(map[string]bool)}
}

// Observe records tokens and returns the ones never observed before,
// in snapshot order
func (w *Watcher) Observe(tokens []models.DisplayToken) []models.DisplayToken {
	w.mu.Lock()
	defer w.mu.Unlock()

	var fresh []models.DisplayToken
	for _, t := range tokens {
		if w.seen[t.Mint] {
			continue
		}
		w.seen[t.Mint] = true
		fresh = append(fresh, t)
	}
	return fresh
}

// Seen returns how many distinct mints were observed
func (w *Watcher) Seen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
