package kernel

import "sync/atomic"

// Lease tracks the released state of a region. Backends embed it and
// call Check before every query.
type Lease struct {
	released atomic.Bool
}

// Release marks the lease released. A second release panics.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		panic("kernel: region released twice")
	}
}

// Released reports whether Release has been called.
func (l *Lease) Released() bool {
	return l.released.Load()
}

// Check panics if the lease has been released.
func (l *Lease) Check() {
	if l.released.Load() {
		panic("kernel: region used after release")
	}
}
