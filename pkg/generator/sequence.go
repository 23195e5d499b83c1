package generator

import "sync/atomic"

// Sequence hands out monotonically increasing ids starting at a base value
type Sequence struct {
	next atomic.Int64
}

// NewSequence creates a sequence whose first id is start
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

// Next returns the next id
func (s *Sequence) Next() int64 {
	return s.next.Add(1) - 1
}

// Peek returns the id Next would return without consuming it
func (s *Sequence) Peek() int64 {
	return s.next.Load()
}
