package event

import "sync"

// Dirty is a single-fire wait/notify primitive. Emit wakes every waiter
// registered before the call, in registration order. A waiter registered
// after an Emit is only woken by a later Emit.
type Dirty struct {
	mu      sync.Mutex
	waiters []chan struct{}
}

func NewDirty() *Dirty {
	return &Dirty{}
}

// Signal registers a waiter and returns a channel which is closed by the
// next Emit. The channel is single-use.
func (d *Dirty) Signal() <-chan struct{} {
	ch := make(chan struct{})

	d.mu.Lock()
	d.waiters = append(d.waiters, ch)
	d.mu.Unlock()

	return ch
}

// Emit wakes all currently registered waiters and clears the waiter list.
func (d *Dirty) Emit() {
	d.mu.Lock()
	waiters := d.waiters
	d.waiters = nil
	d.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}
