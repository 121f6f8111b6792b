// Package interval implements a generic store of values keyed by
// half-open musical-time ranges, queryable by overlap. It backs the
// per-track playlist (internal/playlist) but carries no audio-domain
// knowledge of its own.
package interval

import "github.com/audioengine/core/internal/msclock"

// Store holds values of type V keyed by a half-open msclock.Range.
// Overlapping ranges are allowed; only an exactly-equal range replaces
// an existing entry (§4.2).
type Store[V any] struct {
	entries map[msclock.Range]V
	// order preserves insertion order for entries sharing the same
	// range key only incidentally; overlap iteration order is
	// unspecified per §4.2 and callers must not depend on it.
	order []msclock.Range
}

// New constructs an empty Store.
func New[V any]() *Store[V] {
	return &Store[V]{entries: make(map[msclock.Range]V)}
}

// Insert places value at rng, replacing and returning any value
// previously stored at the exact same range. The caller must ensure
// rng.Start < rng.End; this is a programmer-error precondition, not a
// checked error (§4.2, §7 "Clip insert").
func (s *Store[V]) Insert(rng msclock.Range, value V) (previous V, had bool) {
	if !rng.Start.Less(rng.End) {
		panic("interval: invalid range, start >= end")
	}
	if old, ok := s.entries[rng]; ok {
		s.entries[rng] = value
		return old, true
	}
	s.entries[rng] = value
	s.order = append(s.order, rng)
	var zero V
	return zero, false
}

// Remove deletes the value stored at the exact range rng, if any,
// returning it.
func (s *Store[V]) Remove(rng msclock.Range) (removed V, had bool) {
	v, ok := s.entries[rng]
	if !ok {
		var zero V
		return zero, false
	}
	delete(s.entries, rng)
	for i, r := range s.order {
		if r == rng {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Len returns the number of stored entries.
func (s *Store[V]) Len() int { return len(s.entries) }

// Overlap pairs a stored range with its value, as yielded by
// IterOverlaps.
type Overlap[V any] struct {
	Range msclock.Range
	Value V
}

// All returns every stored (range, value) pair in insertion order, used
// by the playlist's session snapshot/restore.
func (s *Store[V]) All() []Overlap[V] {
	out := make([]Overlap[V], 0, len(s.order))
	for _, rng := range s.order {
		out = append(out, Overlap[V]{Range: rng, Value: s.entries[rng]})
	}
	return out
}

// IterOverlaps returns every stored (range, value) pair whose
// intersection with query is non-empty. Order is unspecified (§4.2).
func (s *Store[V]) IterOverlaps(query msclock.Range) []Overlap[V] {
	var out []Overlap[V]
	for _, rng := range s.order {
		if _, ok := rng.Intersect(query); ok {
			out = append(out, Overlap[V]{Range: rng, Value: s.entries[rng]})
		}
	}
	return out
}
