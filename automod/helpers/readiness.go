package helpers

import (
	"context"
	"sync"
	"sync/atomic"
)

type ReadinessState int32

const (
	Uninitialized ReadinessState = iota
	Loading
	Ready
)

func (s ReadinessState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Tracks warm-up of a slow-to-initialize dependency (eg, a model service, or a detector which loads large data files).
//
// Transitions are Uninitialized -> Loading -> Ready. A failed warm-up goes back to Uninitialized so it can be retried. Once Ready, the state never changes.
type Readiness struct {
	state atomic.Int32
	once  sync.Once
	ready chan struct{}
}

func NewReadiness() *Readiness {
	return &Readiness{
		ready: make(chan struct{}),
	}
}

func (r *Readiness) State() ReadinessState {
	return ReadinessState(r.state.Load())
}

// Non-blocking check.
func (r *Readiness) Ready() bool {
	return r.State() == Ready
}

// Moves Uninitialized to Loading. Returns false if warm-up is already in progress or complete, in which case the caller should not start another.
func (r *Readiness) Begin() bool {
	return r.state.CompareAndSwap(int32(Uninitialized), int32(Loading))
}

// Returns a Loading state to Uninitialized after a failed warm-up.
func (r *Readiness) Fail() {
	r.state.CompareAndSwap(int32(Loading), int32(Uninitialized))
}

func (r *Readiness) MarkReady() {
	r.state.Store(int32(Ready))
	r.once.Do(func() { close(r.ready) })
}

// Blocks until Ready or the context is done.
func (r *Readiness) AwaitReady(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
