package util

import (
	"slices"
	"sync"

	"github.com/taigrr/colorhash"
)

// lockShards is the number of registry maps a KeyedMutex spreads its keys over.
const lockShards = 64

type keyLock struct {
	mu   sync.Mutex
	refs int
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// KeyedMutex provides one exclusive lock per key. Entries are reference
// counted and dropped once the last holder or waiter releases them.
type KeyedMutex struct {
	shards [lockShards]lockShard
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	k := &KeyedMutex{}
	for i := range k.shards {
		k.shards[i].locks = make(map[string]*keyLock)
	}
	return k
}

func (k *KeyedMutex) shard(key string) *lockShard {
	return &k.shards[uint(colorhash.HashString(key))%lockShards]
}

// Lock blocks until key is held exclusively and returns the function that
// releases it.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	s := k.shard(key)

	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, key)
			}
			s.mu.Unlock()
		})
	}
}

// LockMany acquires every distinct key in sorted order, so two callers
// locking overlapping sets cannot deadlock.
func (k *KeyedMutex) LockMany(keys ...string) (unlock func()) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for _, key := range sorted {
		unlocks = append(unlocks, k.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Held reports how many keys currently have a holder or waiter.
func (k *KeyedMutex) Held() int {
	n := 0
	for i := range k.shards {
		s := &k.shards[i]
		s.mu.Lock()
		n += len(s.locks)
		s.mu.Unlock()
	}
	return n
}
