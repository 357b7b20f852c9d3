package async

import (
	"sync"
	"sync/atomic"
)

// Gate is a single-permit token guarding index passes. Acquisition never
// blocks: a caller that loses the race is told so immediately.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire takes the permit if it is free. The returned release func
// is safe to call more than once.
func (g *Gate) TryAcquire() (release func(), ok bool) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.busy.Store(false) })
	}, true
}

// Busy reports whether the permit is currently held.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
