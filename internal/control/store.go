// SPDX-License-Identifier: MIT
package control

import "sync/atomic"

// Store publishes Params from control surfaces to the audio goroutine.
// Writers may run on any goroutine; Load never blocks and never allocates,
// so it is safe inside the audio callback.
type Store struct {
	current atomic.Pointer[Params]
}

// NewStore returns a Store holding the normalized initial params.
func NewStore(initial Params) *Store {
	s := &Store{}
	s.Set(initial)
	return s
}

// Load returns the latest params.
func (s *Store) Load() Params {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return Params{}
}

// Set replaces the params wholesale.
func (s *Store) Set(p Params) {
	p = p.Normalize()
	s.current.Store(&p)
}

// Update applies fn to a copy of the latest params and publishes the result.
// Concurrent writers retry until their update lands on the value they read.
func (s *Store) Update(fn func(*Params)) Params {
	for {
		old := s.current.Load()
		var next Params
		if old != nil {
			next = *old
		}
		fn(&next)
		next = next.Normalize()
		if s.current.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// Toggle flips the trigger, which advances the looper on the next block.
func (s *Store) Toggle() Params {
	return s.Apply(Change{Toggle: true})
}
