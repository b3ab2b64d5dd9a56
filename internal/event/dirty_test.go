package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signalled(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestDirtyEmitWakesAllWaiters(t *testing.T) {
	d := NewDirty()

	first := d.Signal()
	second := d.Signal()
	third := d.Signal()

	assert.False(t, signalled(first), "expected waiter to be pending before emit")
	assert.False(t, signalled(second), "expected waiter to be pending before emit")
	assert.False(t, signalled(third), "expected waiter to be pending before emit")

	d.Emit()

	assert.True(t, signalled(first), "expected first waiter to be woken")
	assert.True(t, signalled(second), "expected second waiter to be woken")
	assert.True(t, signalled(third), "expected third waiter to be woken")
}

func TestDirtySignalAfterEmitWaitsForNextEmit(t *testing.T) {
	d := NewDirty()

	d.Emit()

	late := d.Signal()
	assert.False(t, signalled(late), "waiter registered after emit must not be woken by it")

	d.Emit()
	assert.True(t, signalled(late), "expected waiter to be woken by the next emit")
}

func TestDirtySignalIsSingleUse(t *testing.T) {
	d := NewDirty()

	ch := d.Signal()
	d.Emit()
	<-ch

	// a second emit must not panic on the already-drained waiter list
	d.Emit()

	next := d.Signal()
	select {
	case <-next:
		t.Fatal("fresh waiter woken without an emit")
	case <-time.After(10 * time.Millisecond):
	}
}
