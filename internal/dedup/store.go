package dedup

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pairwatch/internal/chain"
)

// Store is the set of pair addresses already handed to the pipeline during
// this process lifetime. Entries are never removed.
type Store struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewStore() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// TryClaim marks pair as processed. It returns true only for the first call
// with a given canonical address; the check and the insert happen under one
// lock.
func (s *Store) TryClaim(pair common.Address) bool {
	key := chain.Canonical(pair)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}
