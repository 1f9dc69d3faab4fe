package util

import (
	"context"
)

// Semaphore bounds the number of concurrent holders. The zero count semaphore never blocks.
type Semaphore struct {
	slots chan struct{} // nil when unlimited
}

// NewSemaphore returns a Semaphore with count slots, 0 means unlimited.
func NewSemaphore(count int) *Semaphore {
	s := &Semaphore{}
	if count > 0 {
		s.slots = make(chan struct{}, count)
	}
	return s
}

// Acquire blocks until a slot is free. It returns false, holding nothing, once ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.slots == nil {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case s.slots <- struct{}{}:
		return true
	}
}

// Release frees a slot taken by a successful Acquire.
func (s *Semaphore) Release() {
	if s.slots != nil {
		<-s.slots
	}
}
