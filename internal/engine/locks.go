package engine

import "sync"

// petLocks serializes mutations per pet. Every write path is a
// read-modify-write spanning several columns, so two concurrent updates
// against the same pet would otherwise race and lose one side's delta.
type petLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newPetLocks() *petLocks {
	return &petLocks{m: map[string]*sync.Mutex{}}
}

// lock acquires the mutex for a pet and returns its unlock func.
func (l *petLocks) lock(petID string) func() {
	l.mu.Lock()
	mu, ok := l.m[petID]
	if !ok {
		mu = &sync.Mutex{}
		l.m[petID] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}
