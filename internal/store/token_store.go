package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"poolwatch/internal/models"
)

// ErrNotFound is returned when no record exists for a mint
var ErrNotFound = errors.New("token not found")

// TokenStore is the in-memory, mint keyed table of token records.
// All reads return copies; all writes go through Upsert or Update.
type TokenStore struct {
	mu      sync.RWMutex
	records map[string]*models.TokenRecord

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewTokenStore creates an empty store
func NewTokenStore() *TokenStore {
	return &TokenStore{
		records: make(map[string]*models.TokenRecord),
		locks:   make(map[string]*sync.Mutex),
	}
}

// LockMint serialises a read-fetch-write sequence for one mint across
// concurrent triggers. The returned func releases the lock.
func (s *TokenStore) LockMint(mint string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[mint]
	if !ok {
		l = &sync.Mutex{}
		s.locks[mint] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns a copy of the record for mint
func (s *TokenStore) Get(mint string) (*models.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// Update applies fn to the record for mint, creating it first if needed.
// It returns a copy of the record after the update.
func (s *TokenStore) Update(mint string, fn func(r *models.TokenRecord)) *models.TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[mint]
	if !ok {
		r = models.NewTokenRecord(mint)
		s.records[mint] = r
	}

	wasLiquid := r.HasLiquidity
	fn(r)
	// liquidity flag and identity are monotonic
	r.Mint = mint
	if wasLiquid {
		r.HasLiquidity = true
	}
	return r.Clone()
}

// Discovery carries what a pool discovery knows about one of its mints
type Discovery struct {
	PoolAddress        string
	LPMintAddress      string
	LiquidityUSD       *float64
	LiquidityBurnedPct *string
}

// UpsertDiscovered records that mint was seen in a discovered pool.
// Creation time and pool identifiers are only set on first discovery.
// It returns the record copy and whether the mint was new.
func (s *TokenStore) UpsertDiscovered(mint string, d Discovery, seenAt time.Time) (*models.TokenRecord, bool) {
	var created bool
	rec := s.Update(mint, func(r *models.TokenRecord) {
		firstPool := r.PoolAddress == ""
		if !r.HasLiquidity {
			created = true
			r.HasLiquidity = true
			r.DiscoveredAt = seenAt
		}
		if firstPool {
			r.PoolAddress = d.PoolAddress
			r.LPMintAddress = d.LPMintAddress
		}
		if r.PoolAddress != d.PoolAddress {
			// figures of another pool do not describe the recorded one
			return
		}
		if d.LiquidityUSD != nil {
			r.LiquidityUSD = d.LiquidityUSD
		}
		if d.LiquidityBurnedPct != nil {
			r.LiquidityBurnedPct = d.LiquidityBurnedPct
		}
	})
	return rec, created
}

// Mints returns every known mint in a stable order
func (s *TokenStore) Mints() []string {
	s.mu.RLock()
	mints := make([]string, 0, len(s.records))
	for m := range s.records {
		mints = append(mints, m)
	}
	s.mu.RUnlock()

	sort.Strings(mints)
	return mints
}

// All returns copies of every record
func (s *TokenStore) All() []*models.TokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TokenRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out
}

// Len returns the number of records
func (s *TokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
