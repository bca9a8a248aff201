// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// lookupGrowth is the number of slots added each time the table is full.
const lookupGrowth = 50

// TokenLookup is an append-only string interning table. It allows tokens statically known at build time
// (e.g. the target of a permalink) to be carried as a small integer through the routing pass. Indexes are stable
// for the lifetime of the table.
//
// Add is safe for concurrent use and holds a lock for the whole reserve, write and publish sequence. Get is
// lock-free: it reads an immutable snapshot published atomically, so a reader never observes an unwritten slot.
type TokenLookup struct {
	snap    atomic.Pointer[lookupSnapshot]
	indexes map[string]int
	mu      sync.Mutex
}

type lookupSnapshot struct {
	// values has len == number of interned tokens, and spare capacity reserved for growth. Slots beyond len
	// are written only before a new snapshot is published.
	values []string
}

// NewTokenLookup returns an empty table.
func NewTokenLookup() *TokenLookup {
	l := &TokenLookup{
		indexes: make(map[string]int),
	}
	l.snap.Store(&lookupSnapshot{values: make([]string, 0, lookupGrowth)})
	return l
}

// Add returns the index of token, interning it if needed.
func (l *TokenLookup) Add(token string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx, ok := l.indexes[token]; ok {
		return idx
	}

	current := l.snap.Load().values
	idx := len(current)
	var next []string
	if idx == cap(current) {
		next = make([]string, idx+1, cap(current)+lookupGrowth)
		copy(next, current)
		next[idx] = token
	} else {
		// Writing past len of the published slice is invisible to readers until the new header is stored.
		next = append(current, token)
	}

	l.indexes[token] = idx
	l.snap.Store(&lookupSnapshot{values: next})
	return idx
}

// Get returns the token interned at index. Since indexes are only ever produced by Add, an out-of-range
// index is a programming error and Get panics.
func (l *TokenLookup) Get(index int) string {
	values := l.snap.Load().values
	if index < 0 || index >= len(values) {
		panic("waypoint: token lookup index out of range [" + strconv.Itoa(index) + "] with length " + strconv.Itoa(len(values)))
	}
	return values[index]
}

// Len returns the number of interned tokens.
func (l *TokenLookup) Len() int {
	return len(l.snap.Load().values)
}
