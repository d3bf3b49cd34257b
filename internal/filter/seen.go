// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import "sync"

// SeenSet tracks content hashes claimed during the current run. Filter
// workers race to claim hashes, so claims are atomic: the first caller
// wins and every later caller is told who holds the hash.
type SeenSet struct {
	mu   sync.Mutex
	held map[string]string
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{held: make(map[string]string)}
}

// Claim records hash as held by ref. It returns true when this call took
// the claim, or false plus the existing holder when the hash was already
// claimed.
func (s *SeenSet) Claim(hash, ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.held[hash]; ok {
		return holder, false
	}
	s.held[hash] = ref
	return "", true
}

// Len returns the number of claimed hashes.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}
