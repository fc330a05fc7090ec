// Package dashboard owns the in-memory view of the record collection that the
// HTTP and CLI surfaces render from, together with the presentation helpers
// for searching and paging it.
package dashboard

import (
	"sync"

	"github.com/denguewatch/denguewatch/internal/records"
)

// State is the list of records last confirmed by the store. It is replaced
// wholesale by refreshes and patched locally only after a store call has
// succeeded.
//
// Every patch advances a mutation counter and, while a refresh is in flight,
// is kept in a journal. A refresh remembers the counter at dispatch; when its
// result is installed, patches confirmed after that point are replayed on top
// so a listing read before a write cannot undo it.
type State struct {
	mu         sync.RWMutex
	recs       map[records.ID]records.CaseRecord
	dispatched uint64
	applied    uint64
	loaded     bool

	mutations uint64
	marks     map[uint64]uint64 // in-flight refresh seq -> mutations at dispatch
	journal   []patch
}

type patch struct {
	mutation uint64
	rec      records.CaseRecord
	deleted  bool
}

// NewState returns an empty, not yet loaded state.
func NewState() *State {
	return &State{
		recs:  make(map[records.ID]records.CaseRecord),
		marks: make(map[uint64]uint64),
	}
}

// NextSeq reserves the sequence number for a refresh about to be dispatched.
func (s *State) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched++
	s.marks[s.dispatched] = s.mutations
	return s.dispatched
}

// Replace installs the result of the refresh dispatched as seq, then replays
// the patches confirmed since that dispatch. Results of refreshes dispatched
// before the one last applied are discarded and Replace reports false.
func (s *State) Replace(seq uint64, recs []records.CaseRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.marks[seq]
	if !ok {
		mark = s.mutations
	}
	delete(s.marks, seq)
	if seq <= s.applied {
		s.prune()
		return false
	}

	s.applied = seq
	s.loaded = true
	s.recs = make(map[records.ID]records.CaseRecord, len(recs))
	for _, r := range recs {
		s.recs[r.ID] = r
	}
	for _, p := range s.journal {
		if p.mutation > mark {
			s.apply(p)
		}
	}
	for pending := range s.marks {
		if pending <= seq {
			delete(s.marks, pending)
		}
	}
	s.prune()
	return true
}

// Abandon forgets a refresh that will never call Replace.
func (s *State) Abandon(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marks, seq)
	s.prune()
}

// prune drops journal entries no in-flight refresh needs. Called with mu held.
func (s *State) prune() {
	if len(s.marks) == 0 {
		s.journal = nil
		return
	}
	oldest := s.mutations
	for _, m := range s.marks {
		if m < oldest {
			oldest = m
		}
	}
	kept := s.journal[:0]
	for _, p := range s.journal {
		if p.mutation > oldest {
			kept = append(kept, p)
		}
	}
	s.journal = kept
}

// record applies a confirmed patch and journals it for in-flight refreshes.
// Called with mu held.
func (s *State) record(p patch) {
	s.mutations++
	p.mutation = s.mutations
	s.apply(p)
	if len(s.marks) > 0 {
		s.journal = append(s.journal, p)
	}
}

func (s *State) apply(p patch) {
	if p.deleted {
		delete(s.recs, p.rec.ID)
		return
	}
	s.recs[p.rec.ID] = p.rec
}

// Loaded reports whether any refresh has been applied.
func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ApplyCreated adds a record the store has just confirmed.
func (s *State) ApplyCreated(r records.CaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(patch{rec: r})
}

// ApplyImported adds every record of a committed batch.
func (s *State) ApplyImported(rs []records.CaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		s.record(patch{rec: r})
	}
}

// ApplyUpdated replaces a known record. Unknown ids are added, since the
// store has already accepted the write.
func (s *State) ApplyUpdated(r records.CaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(patch{rec: r})
}

// ApplyDeleted drops a record and reports whether it was present.
func (s *State) ApplyDeleted(id records.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recs[id]
	s.record(patch{rec: records.CaseRecord{ID: id}, deleted: true})
	return ok
}

// Get returns one record.
func (s *State) Get(id records.ID) (records.CaseRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[id]
	return r, ok
}

// Snapshot returns a copy of the records ordered by date, then id.
func (s *State) Snapshot() []records.CaseRecord {
	s.mu.RLock()
	out := make([]records.CaseRecord, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, r)
	}
	s.mu.RUnlock()
	records.SortByDate(out)
	return out
}

// Len is the number of records held.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}
