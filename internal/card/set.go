package card

import (
	"errors"
	"slices"
)

var ErrNotHeld = errors.New("card not held")
var ErrDuplicateCard = errors.New("duplicate card")

// Set is an ordered collection of held cards. Ordering is ascending by
// Power then ID so hands display and compare deterministically. The zero
// value is an empty set ready for use.
type Set struct {
	ids []ID
}

// NewSet builds a set from ids, rejecting duplicates and off-deck values.
func NewSet(ids ...ID) (Set, error) {
	var s Set
	if err := s.Add(ids...); err != nil {
		return Set{}, err
	}
	return s, nil
}

func order(a, b ID) int {
	if c := a.Power() - b.Power(); c != 0 {
		return c
	}
	return int(a) - int(b)
}

// Add inserts ids, keeping the set ordered. A duplicate or invalid id
// leaves the set unchanged and returns an error; a repeat within the
// batch itself counts as a duplicate too.
func (s *Set) Add(ids ...ID) error {
	batch := make(map[ID]bool, len(ids))
	for _, id := range ids {
		if !id.Valid() {
			return ErrNotHeld
		}
		if batch[id] || s.Has(id) {
			return ErrDuplicateCard
		}
		batch[id] = true
	}
	s.ids = append(s.ids, ids...)
	slices.SortFunc(s.ids, order)
	return nil
}

// Remove takes ids out of the set. If any id is absent the set is left
// unchanged and ErrNotHeld is returned.
func (s *Set) Remove(ids ...ID) error {
	if !s.HasAll(ids) {
		return ErrNotHeld
	}
	for _, id := range ids {
		i, _ := slices.BinarySearchFunc(s.ids, id, order)
		s.ids = slices.Delete(s.ids, i, i+1)
	}
	return nil
}

// Has reports whether id is held.
func (s *Set) Has(id ID) bool {
	_, ok := slices.BinarySearchFunc(s.ids, id, order)
	return ok
}

// HasAll reports whether every id is held, treating ids as a set
// (a repeated id is only satisfiable once).
func (s *Set) HasAll(ids []ID) bool {
	seen := make(map[ID]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !s.Has(id) {
			return false
		}
		seen[id] = true
	}
	return true
}

// Len is the number of held cards.
func (s *Set) Len() int { return len(s.ids) }

// IDs returns a copy of the held cards in display order.
func (s *Set) IDs() []ID { return slices.Clone(s.ids) }

// Clone returns an independent copy of the set.
func (s *Set) Clone() Set { return Set{ids: slices.Clone(s.ids)} }

// Clear empties the set.
func (s *Set) Clear() { s.ids = nil }

// UnionIsDeck reports whether the given groups together form exactly one
// full deck: every ID 1..54 present exactly once across all groups.
func UnionIsDeck(groups ...[]ID) bool {
	seen := make(map[ID]bool, DeckSize)
	total := 0
	for _, g := range groups {
		for _, id := range g {
			if !id.Valid() || seen[id] {
				return false
			}
			seen[id] = true
			total++
		}
	}
	return total == DeckSize
}
