package services

import (
	"strconv"
	"sync"
)

// Locks serializes read-modify-write sequences on the same tournament or match
// within this process. Services that touch the same rows must share one Locks.
type Locks struct {
	keys *keyedMutex
}

func NewLocks() *Locks {
	return &Locks{keys: newKeyedMutex()}
}

// keyedMutex hands out one mutex per key and forgets it when nobody holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func tournamentKey(id int) string { return "tournament:" + strconv.Itoa(id) }

func matchKey(id int) string { return "match:" + strconv.Itoa(id) }
