package collections

import (
	"encoding/binary"

	"github.com/dchest/siphash"
)

type mapEntry[K comparable, V any] struct {
	key     K
	value   V
	present bool
}

// HashFunc computes a key's hash given the map's keyed SipHash-2-4 secret.
// Keys that are not naturally byte sequences must supply their own
// HashFunc; HashUint64 covers the common case used throughout this kernel
// (physical/virtual addresses).
type HashFunc[K any] func(key K, k0, k1 uint64) uint64

// HashUint64 hashes a uint64 key with SipHash-2-4.
func HashUint64(key uint64, k0, k1 uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return siphash.Hash(k0, k1, buf[:])
}

// StaticMap is a fixed-capacity, open-addressed hash table using linear
// probing and a keyed SipHash-2-4 hash, so that its probe sequence cannot
// be driven into worst-case clustering by a caller that controls keys.
type StaticMap[K comparable, V any] struct {
	slots  []mapEntry[K, V]
	cap    int
	length int
	k0, k1 uint64
	hash   HashFunc[K]
}

// NewStaticMap returns an empty map of the given capacity, hashing keys
// with hash under the fixed keyed secret (k0, k1).
func NewStaticMap[K comparable, V any](capacity int, hash HashFunc[K], k0, k1 uint64) *StaticMap[K, V] {
	return &StaticMap[K, V]{
		slots: make([]mapEntry[K, V], capacity),
		cap:   capacity,
		k0:    k0,
		k1:    k1,
		hash:  hash,
	}
}

// NewUint64Map is a convenience constructor for the common case of
// uint64-keyed maps (e.g. the slab allocator's addr_map), using a fixed
// default SipHash secret.
func NewUint64Map[V any](capacity int) *StaticMap[uint64, V] {
	return NewStaticMap[uint64, V](capacity, HashUint64, 0x0123456789abcdef, 0xfedcba9876543210)
}

// Len reports the number of entries currently stored.
func (m *StaticMap[K, V]) Len() int {
	return m.length
}

func (m *StaticMap[K, V]) home(key K) int {
	return int(m.hash(key, m.k0, m.k1) % uint64(m.cap))
}

// Find probes from the key's natural position, stopping at the first
// empty slot (not found) or a matching key.
func (m *StaticMap[K, V]) Find(key K) (V, bool) {
	var zero V
	pos := m.home(key)
	idx := pos
	for {
		if !m.slots[idx].present {
			return zero, false
		}
		if m.slots[idx].key == key {
			return m.slots[idx].value, true
		}
		idx = (idx + 1) % m.cap
		if idx == pos {
			return zero, false
		}
	}
}

// Insert probes from the key's natural position, storing into the first
// empty slot. A matching key already present is DuplicateKey; cycling
// back to the start without an empty slot is MapFull.
func (m *StaticMap[K, V]) Insert(key K, value V) (int, error) {
	pos := m.home(key)
	idx := pos
	for i := 0; i < m.cap; i++ {
		if m.slots[idx].present {
			if m.slots[idx].key == key {
				return 0, ErrDuplicateKey
			}
		} else {
			m.slots[idx] = mapEntry[K, V]{key: key, value: value, present: true}
			m.length++
			return idx, nil
		}
		idx = (idx + 1) % m.cap
	}
	return 0, ErrMapFull
}

// Remove clears the matching slot and then performs a Knuth 6.4 Algorithm
// R backward shift: each subsequent occupied slot is pulled back into the
// vacated hole unless its own natural position lies in the cyclic range
// (hole, currentSlot] — moving such an entry would place it before its
// probe start and break the invariant that every findable key sits at or
// after its natural position with no gap.
func (m *StaticMap[K, V]) Remove(key K) (V, error) {
	var zero V
	pos := m.home(key)
	idx := pos
	found := -1
	for {
		if !m.slots[idx].present {
			return zero, ErrNotFound
		}
		if m.slots[idx].key == key {
			found = idx
			break
		}
		idx = (idx + 1) % m.cap
		if idx == pos {
			return zero, ErrNotFound
		}
	}

	value := m.slots[found].value
	hole := found
	m.slots[hole] = mapEntry[K, V]{}

	j := hole
	for {
		j = (j + 1) % m.cap
		if !m.slots[j].present {
			break
		}
		natural := m.home(m.slots[j].key)
		if cyclicBetweenExclusiveInclusive(hole, natural, j) {
			continue
		}
		m.slots[hole] = m.slots[j]
		m.slots[j] = mapEntry[K, V]{}
		hole = j
	}

	m.length--
	return value, nil
}

// cyclicBetweenExclusiveInclusive reports whether k lies in the cyclic
// interval (i, j] over a ring of the map's capacity.
func cyclicBetweenExclusiveInclusive(i, k, j int) bool {
	if i <= j {
		return i < k && k <= j
	}
	return k > i || k <= j
}
