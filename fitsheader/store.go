// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fitsheader

import "sync"

// Store is an ordered collection of Cards with unique keywords. Inserting
// a duplicate keyword overwrites the existing value/comment in place,
// preserving the original insertion position (spec.md §8 invariant 7).
//
// Store is safe for concurrent use: the camera worker holds it across the
// "compose internal headers then save" step so client pushes from RPC
// threads cannot interleave with a save (spec.md §5).
type Store struct {
	mu    sync.Mutex
	order []string
	cards map[string]Card
}

// NewStore returns an empty header store.
func NewStore() *Store {
	return &Store{cards: map[string]Card{}}
}

// Set inserts or overwrites a card. If the keyword already exists its
// insertion position is preserved.
func (s *Store) Set(c Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(c)
}

func (s *Store) setLocked(c Card) {
	if _, ok := s.cards[c.Keyword]; !ok {
		s.order = append(s.order, c.Keyword)
	}
	s.cards[c.Keyword] = c
}

// SetAll inserts or overwrites many cards in order, atomically with
// respect to concurrent readers.
func (s *Store) SetAll(cards []Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cards {
		s.setLocked(c)
	}
}

// Clear removes every card.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.cards = map[string]Card{}
}

// Get returns the card for keyword and whether it was present.
func (s *Store) Get(keyword string) (Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[keyword]
	return c, ok
}

// Cards returns a snapshot of all cards in insertion order.
func (s *Store) Cards() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Card, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.cards[k])
	}
	return out
}

// Len returns the number of distinct keywords currently stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Lock acquires the store's mutex for the duration of fn, so a caller can
// compose internal headers and save atomically with respect to
// Set/SetAll/Clear from other goroutines. fn must not call back into the
// Store's other exported methods, which would deadlock.
func (s *Store) Lock(fn func(*Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// SetLocked is like Set but must only be called from within a Lock
// callback.
func (s *Store) SetLocked(c Card) {
	s.setLocked(c)
}

// SetAllLocked is like SetAll but must only be called from within a Lock
// callback.
func (s *Store) SetAllLocked(cards []Card) {
	for _, c := range cards {
		s.setLocked(c)
	}
}

// CardsLocked is like Cards but must only be called from within a Lock
// callback.
func (s *Store) CardsLocked() []Card {
	out := make([]Card, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.cards[k])
	}
	return out
}
