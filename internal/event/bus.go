package event

import (
	"log"
	"slices"
	"sync"
)

type listener[T any] struct {
	id int
	fn func(T)
}

// Bus is an in-process publish/subscribe fan-out for a single payload type.
// Emit invokes every registered listener synchronously in registration
// order; a panicking listener is recovered so delivery continues and the
// emitter is never aborted. Listeners must not block: a slow listener
// stalls delivery for everyone behind it.
//
// A Bus is constructed once per process and injected into whatever needs
// it; there is no package-level instance.
type Bus[T any] struct {
	log       *log.Logger
	mu        sync.Mutex
	listeners []listener[T]
	nextId    int
}

func NewBus[T any](logger *log.Logger) *Bus[T] {
	return &Bus[T]{log: logger}
}

// Subscribe registers fn and returns an id for Unsubscribe. Registering
// the same function twice yields two invocations per Emit.
func (b *Bus[T]) Subscribe(fn func(T)) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextId++
	b.listeners = append(b.listeners, listener[T]{id: b.nextId, fn: fn})
	return b.nextId
}

// Unsubscribe removes the registration with the given id. Unknown ids are
// ignored.
func (b *Bus[T]) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = slices.Delete(b.listeners, i, i+1)
			return
		}
	}
}

// Emit delivers payload to every listener registered at the time of the
// call. Payloads emitted with no listeners are lost.
func (b *Bus[T]) Emit(payload T) {
	b.mu.Lock()
	listeners := slices.Clone(b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		b.invoke(l, payload)
	}
}

// Len reports the number of registered listeners.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Bus[T]) invoke(l listener[T], payload T) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Printf("bus: listener %d panicked: %v", l.id, r)
		}
	}()

	l.fn(payload)
}
