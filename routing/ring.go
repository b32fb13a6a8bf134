// Package routing maps keys to nodes using the hash rings the locator
// publishes.
//
//	Hash Ring (wire order):
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	   (99,b) ●               ● (5,a)
//	          │    key ◆──►   │   first entry with hash >= key hash → a
//	   (70,c) ●               ● (40,b)
//	              ╲       ╱
//	                ╲   ╱
//
// A key whose hash is above every entry wraps around to the first entry.
package routing

import (
	"slices"
	"sort"

	"mesh-rpc/locator"

	"github.com/cespare/xxhash/v2"
)

// Hasher maps a routing key onto the ring.
type Hasher func(key string) uint64

// DefaultHasher is xxhash64 of the key bytes.
func DefaultHasher(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Ring answers lookups over one application's HashRing. It never reorders
// the entries; a ring that arrives unsorted is walked in wire order.
type Ring struct {
	entries locator.HashRing
	sorted  bool
	hash    Hasher
}

func NewRing(entries locator.HashRing, hash Hasher) *Ring {
	if hash == nil {
		hash = DefaultHasher
	}
	return &Ring{
		entries: entries,
		sorted: slices.IsSortedFunc(entries, func(a, b locator.RingEntry) int {
			switch {
			case a.Hash < b.Hash:
				return -1
			case a.Hash > b.Hash:
				return 1
			}
			return 0
		}),
		hash: hash,
	}
}

func (r *Ring) Len() int {
	return len(r.entries)
}

// Lookup returns the entry responsible for key.
func (r *Ring) Lookup(key string) (locator.RingEntry, bool) {
	return r.LookupHash(r.hash(key))
}

// LookupHash returns the first entry whose hash is >= h, wrapping to the
// first entry.
func (r *Ring) LookupHash(h uint64) (locator.RingEntry, bool) {
	if len(r.entries) == 0 {
		return locator.RingEntry{}, false
	}

	idx := len(r.entries)
	if r.sorted {
		// Binary search: find first entry with hash >= h
		idx = sort.Search(len(r.entries), func(i int) bool {
			return r.entries[i].Hash >= h
		})
	} else {
		for i, e := range r.entries {
			if e.Hash >= h {
				idx = i
				break
			}
		}
	}

	// Wrap around: h is larger than every entry
	if idx == len(r.entries) {
		idx = 0
	}
	return r.entries[idx], true
}
