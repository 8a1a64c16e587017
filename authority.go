package ecs

import "sync"

// authorityRecord is one component type's borrow-check slot: whether it has
// been claimed this group, and by which opaque key.
type authorityRecord struct {
	requested bool
	key       any
}

// AuthorityTable implements §4.6/§5's cooperative borrow check: value
// equality over opaque keys, not true aliasing analysis. Cleared at the
// boundary between process groups and again at end of tick. generation
// counts how many times Clear has run, so an iterator can tell whether the
// authority it acquired is still current or belongs to an already-closed
// group (see Edit's ErrMissingAuthority check in iterator.go).
type AuthorityTable struct {
	mu         sync.Mutex
	records    []authorityRecord
	generation int
}

func newAuthorityTable(numTypes int) *AuthorityTable {
	return &AuthorityTable{records: make([]authorityRecord, numTypes)}
}

// Generation returns how many times Clear has run.
func (t *AuthorityTable) Generation() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

func (t *AuthorityTable) grow(numTypes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.records) < numTypes {
		t.records = append(t.records, authorityRecord{})
	}
}

// Acquire requests authority over every id in ids using the corresponding
// key in keys (same length, positionally matched). It either grants all of
// them or grants none, returning ErrAuthorityConflict on the first mismatch.
func (t *AuthorityTable) Acquire(ids []ComponentID, keys []any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, id := range ids {
		rec := &t.records[id]
		if rec.requested {
			k := keys[i]
			if k == nil || k != rec.key {
				return ErrAuthorityConflict
			}
			continue
		}
	}
	for i, id := range ids {
		rec := &t.records[id]
		if !rec.requested {
			rec.requested = true
			rec.key = keys[i]
		}
	}
	return nil
}

// Clear resets every authority record, run between process groups and at
// end of tick, and advances the generation counter so any iterator that
// acquired authority before this Clear can detect its claim has expired.
func (t *AuthorityTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.records {
		t.records[i] = authorityRecord{}
	}
	t.generation++
}
