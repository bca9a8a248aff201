// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import "strconv"

// MaxTokenCount is the maximum number of {token} segments a route may declare. The token buffer used while
// routing a request has a fixed capacity of MaxTokenCount, and routes requiring more tokens are rejected at
// registration with [ErrTooManyTokens].
const MaxTokenCount = 4

// noLookup marks a TokenMarker that references the request path instead of the lookup table.
const noLookup = -1

// TokenMarker identifies a captured token. Either it spans the region [Start, Start+Length) of the request path,
// or, when LookupIndex is not -1, it references a value interned in a [TokenLookup] (tokens baked by a rewrite).
type TokenMarker struct {
	Start       int32
	Length      int32
	LookupIndex int32
}

// IsLookup returns true if the marker references an interned value.
func (m TokenMarker) IsLookup() bool {
	return m.LookupIndex != noLookup
}

func spanMarker(start, length int) TokenMarker {
	return TokenMarker{Start: int32(start), Length: int32(length), LookupIndex: noLookup}
}

func lookupMarker(index int) TokenMarker {
	return TokenMarker{LookupIndex: int32(index)}
}

// Tokens is the fixed capacity list of tokens captured while routing a single request. It is a value type,
// created on the stack of the routing pass and handed to the matched endpoint. Tokens must not be retained
// after the handler returns unless copied with [Tokens.Values].
type Tokens struct {
	lookup  *TokenLookup
	path    string
	markers [MaxTokenCount]TokenMarker
	n       int
}

// Len returns the number of captured tokens.
func (t *Tokens) Len() int {
	return t.n
}

// At returns the raw marker at index i. It panics if i is out of range.
func (t *Tokens) At(i int) TokenMarker {
	if i >= t.n {
		panic("waypoint: token index out of range [" + strconv.Itoa(i) + "] with length " + strconv.Itoa(t.n))
	}
	return t.markers[i]
}

// Get returns the value of the token at index i. It panics if i is out of range.
func (t *Tokens) Get(i int) string {
	m := t.At(i)
	if m.IsLookup() {
		return t.lookup.Get(int(m.LookupIndex))
	}
	return t.path[m.Start : m.Start+m.Length]
}

// Values returns a copy of every token value. Unlike Get, the returned slice is safe to retain.
func (t *Tokens) Values() []string {
	values := make([]string, t.n)
	for i := 0; i < t.n; i++ {
		values[i] = t.Get(i)
	}
	return values
}

// push appends a marker and reports false if the buffer is full.
func (t *Tokens) push(m TokenMarker) bool {
	if t.n == MaxTokenCount {
		return false
	}
	t.markers[t.n] = m
	t.n++
	return true
}

// replace discards every captured token and loads the baked tokens of a rewrite.
func (t *Tokens) replace(baked *bakedTokens) {
	t.markers = baked.markers
	t.n = baked.n
}

// bakedTokens is the token set computed at build time for a rewrite target.
type bakedTokens struct {
	markers [MaxTokenCount]TokenMarker
	n       int
}
