package event

import (
	"testing"

	"github.com/carnival-games/carnival/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBusEmitInvokesListenersInOrder(t *testing.T) {
	b := NewBus[int](testutil.TestLogger(t))

	var order []string
	b.Subscribe(func(v int) { order = append(order, "first") })
	b.Subscribe(func(v int) { order = append(order, "second") })

	b.Emit(1)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBusPanickingListenerDoesNotStopDelivery(t *testing.T) {
	b := NewBus[string](testutil.TestLogger(t))

	var second, third string
	b.Subscribe(func(v string) { panic("boom") })
	b.Subscribe(func(v string) { second = v })
	b.Subscribe(func(v string) { third = v })

	assert.NotPanics(t, func() { b.Emit("payload") }, "listener panic must not reach the emitter")
	assert.Equal(t, "payload", second, "expected delivery to continue past the panicking listener")
	assert.Equal(t, "payload", third, "expected delivery to continue past the panicking listener")
}

func TestBusDuplicateRegistrationFiresTwice(t *testing.T) {
	b := NewBus[int](testutil.TestLogger(t))

	var calls int
	fn := func(v int) { calls++ }
	b.Subscribe(fn)
	b.Subscribe(fn)

	b.Emit(1)

	assert.Equal(t, 2, calls)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus[int](testutil.TestLogger(t))

	var calls int
	id := b.Subscribe(func(v int) { calls++ })
	assert.Equal(t, 1, b.Len())

	b.Unsubscribe(id)
	assert.Equal(t, 0, b.Len())

	b.Emit(1)
	assert.Zero(t, calls, "unsubscribed listener must not be invoked")

	// unknown ids are ignored
	b.Unsubscribe(42)
}

func TestBusEmitWithNoListeners(t *testing.T) {
	b := NewBus[int](testutil.TestLogger(t))
	assert.NotPanics(t, func() { b.Emit(1) })
}
