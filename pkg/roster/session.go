package roster

import (
	"fmt"
	"sync"
)

// Session holds the live state of one scan: per-slot entries and outstanding selections.
// It is discarded on the next scan.
type Session struct {
	mu         sync.Mutex
	candidates []ParsedCandidate
	entries    []RosterEntry // indexed by SlotIndex
	pending    map[int]PendingSelection
}

// NewSession builds a session from resolution results. res[i] must be slot i.
func NewSession(cands []ParsedCandidate, res []Resolution) *Session {
	s := &Session{
		candidates: append([]ParsedCandidate(nil), cands...),
		entries:    make([]RosterEntry, len(res)),
		pending:    make(map[int]PendingSelection),
	}
	for i, r := range res {
		s.entries[i] = r.Entry
		s.entries[i].SlotIndex = i
		if r.Pending != nil {
			p := *r.Pending
			p.SlotIndex = i
			s.pending[i] = p
		}
	}
	return s
}

// Candidates returns the extracted candidates in slot order.
func (s *Session) Candidates() []ParsedCandidate {
	out := make([]ParsedCandidate, len(s.candidates))
	for i, c := range s.candidates {
		c.PossibleLocations = append([]string(nil), c.PossibleLocations...)
		out[i] = c
	}
	return out
}

// Entries returns a copy of the per-slot entries in slot order.
func (s *Session) Entries() []RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RosterEntry(nil), s.entries...)
}

// Pending returns the outstanding selection for slot, if any.
func (s *Session) Pending(slot int) (PendingSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[slot]
	if !ok {
		return PendingSelection{}, false
	}
	return p.clone(), true
}

// Summary recomputes the roster view from the current entries.
func (s *Session) Summary() RosterSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() RosterSummary {
	ps := make([]PendingSelection, 0, len(s.pending))
	for _, p := range s.pending {
		ps = append(ps, p)
	}
	return Aggregate(s.entries, ps)
}

// Commit applies a human choice to one slot and returns the recomputed summary.
// The entity must be one of the slot's pending options. Other slots are not touched.
func (s *Session) Commit(slot int, location string, chosen Entity) (RosterSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot < 0 || slot >= len(s.entries) {
		return RosterSummary{}, fmt.Errorf("commit slot %d: %w", slot, ErrUnknownSlot)
	}
	p, ok := s.pending[slot]
	if !ok {
		return RosterSummary{}, fmt.Errorf("commit slot %d: %w", slot, ErrNoPendingSelection)
	}
	var opt *ServerCandidate
	for i := range p.Options {
		o := &p.Options[i]
		if o.Entity == nil || o.Location != location {
			continue
		}
		if EntityKey(*o.Entity) == EntityKey(chosen) {
			opt = o
			break
		}
	}
	if opt == nil {
		return RosterSummary{}, fmt.Errorf("commit slot %d %s@%s: %w", slot, chosen.Name, location, ErrInvalidChoice)
	}

	// entity fields come from the offered option, never from the caller
	e := s.entries[slot]
	e.apply(location, *opt.Entity)
	e.MatchedVariant = opt.MatchedVariant
	s.entries[slot] = e
	delete(s.pending, slot)
	return s.summaryLocked(), nil
}
