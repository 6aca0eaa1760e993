package directory

import "sync/atomic"

// Store publishes the current Snapshot. Readers call Current once per request and
// keep using that snapshot; a reload builds a new Snapshot and swaps it in, so a
// request never sees a half-updated directory.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore(s *Snapshot) *Store {
	st := &Store{}
	st.current.Store(s)
	return st
}

// Current returns the published snapshot, nil if none was ever stored.
func (st *Store) Current() *Snapshot {
	return st.current.Load()
}

// Swap publishes s and returns the snapshot it replaced.
func (st *Store) Swap(s *Snapshot) *Snapshot {
	return st.current.Swap(s)
}
