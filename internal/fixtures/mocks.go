package fixtures

import (
	"context"
	"sync"
	"time"

	"github.com/atlassian/kairosrelay"
)

// CapturingBackend is a kairosrelay.Backend keeping every closed flush.
type CapturingBackend struct {
	// Errors is handed to the callback of every CloseAsync.
	Errors []error

	mu      sync.Mutex
	flushes []CapturedFlush
	closed  chan struct{}
}

// CapturedFlush is a flush received by a CapturingBackend.
type CapturedFlush struct {
	Timestamp  time.Time
	Datapoints []*kairosrelay.Datapoint
}

var _ kairosrelay.Backend = (*CapturingBackend)(nil)

func NewCapturingBackend() *CapturingBackend {
	return &CapturingBackend{
		closed: make(chan struct{}, 100),
	}
}

func (cb *CapturingBackend) Name() string {
	return "capturing"
}

func (cb *CapturingBackend) NewFlush(ctx context.Context, ts time.Time) kairosrelay.Flush {
	return &capturingFlush{backend: cb, flush: CapturedFlush{Timestamp: ts}}
}

// Flushes returns the flushes closed so far.
func (cb *CapturingBackend) Flushes() []CapturedFlush {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return append([]CapturedFlush(nil), cb.flushes...)
}

// Closed is signalled once per closed flush.
func (cb *CapturingBackend) Closed() <-chan struct{} {
	return cb.closed
}

type capturingFlush struct {
	backend *CapturingBackend
	flush   CapturedFlush
}

func (f *capturingFlush) Add(dp *kairosrelay.Datapoint) {
	f.flush.Datapoints = append(f.flush.Datapoints, dp)
}

func (f *capturingFlush) CloseAsync(cb kairosrelay.SendCallback) {
	f.backend.mu.Lock()
	f.backend.flushes = append(f.backend.flushes, f.flush)
	errs := f.backend.Errors
	f.backend.mu.Unlock()
	go func() {
		cb(errs)
		f.backend.closed <- struct{}{}
	}()
}
