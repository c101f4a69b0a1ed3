package frame

import (
	"sync"
	"sync/atomic"
)

// Slot is a latest-wins buffer of one frame. Publish overwrites whatever is
// stored; Latest never blocks and returns either the previous or the newest
// frame, never a partial one.
type Slot struct {
	latest atomic.Pointer[Frame]

	// mu orders Publish against Close so nothing is stored after Close returns.
	mu     sync.Mutex
	closed bool

	lastRead  atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
}

// SlotStats is a point-in-time view of slot counters.
type SlotStats struct {
	Published uint64
	Dropped   uint64 // frames overwritten before any reader saw them
	LatestSeq uint64
}

func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores f as the latest frame. It reports false once the slot is closed.
func (s *Slot) Publish(f *Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if prev := s.latest.Load(); prev != nil && s.lastRead.Load() != prev.Seq {
		s.dropped.Add(1)
	}
	s.latest.Store(f)
	s.published.Add(1)
	return true
}

// Latest returns the newest published frame, or nil when nothing was published yet.
func (s *Slot) Latest() *Frame {
	f := s.latest.Load()
	if f != nil {
		s.lastRead.Store(f.Seq)
	}
	return f
}

// Close stops further publication. The last frame stays readable.
func (s *Slot) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Slot) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Slot) Stats() SlotStats {
	st := SlotStats{
		Published: s.published.Load(),
		Dropped:   s.dropped.Load(),
	}
	if f := s.latest.Load(); f != nil {
		st.LatestSeq = f.Seq
	}
	return st
}
