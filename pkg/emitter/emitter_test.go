package emitter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclight.org/tgweb/pkg/emitter"
)

func TestEmit_Order(t *testing.T) {
	e := emitter.New[int]()

	var calls []string
	e.On("a", func(v int) error { calls = append(calls, "first"); return nil })
	e.On("a", func(v int) error { calls = append(calls, "second"); return nil })
	e.On("b", func(v int) error { calls = append(calls, "other"); return nil })

	require.NoError(t, e.Emit("a", 1))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestEmit_NoListeners(t *testing.T) {
	e := emitter.New[string]()
	assert.NoError(t, e.Emit("nothing", "x"))
	assert.Zero(t, e.ListenerCount("nothing"))
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	e := emitter.New[int]()

	var got int
	sub := e.On("a", func(v int) error { got += v; return nil })
	assert.Equal(t, "a", sub.Event())

	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, e.Emit("a", 5))
	assert.Zero(t, got)
	assert.Zero(t, e.ListenerCount("a"))
}

func TestUnsubscribe_SameHandlerTwice(t *testing.T) {
	e := emitter.New[int]()

	var got int
	h := func(v int) error { got += v; return nil }
	first := e.On("a", h)
	e.On("a", h)

	first.Unsubscribe()
	require.NoError(t, e.Emit("a", 1))
	assert.Equal(t, 1, got)
}

func TestEmit_ErrorIsolation(t *testing.T) {
	e := emitter.New[int]()

	var reached []int
	e.On("a", func(v int) error { reached = append(reached, 1); return errors.New("boom") })
	e.On("a", func(v int) error { reached = append(reached, 2); panic("oops") })
	e.On("a", func(v int) error { reached = append(reached, 3); return nil })

	err := e.Emit("a", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "oops")
	assert.Equal(t, []int{1, 2, 3}, reached)
}

func TestEmit_AddedDuringDispatchMissesInFlightEvent(t *testing.T) {
	e := emitter.New[int]()

	var late []int
	e.On("a", func(v int) error {
		e.On("a", func(v int) error { late = append(late, v); return nil })
		return nil
	})

	require.NoError(t, e.Emit("a", 1))
	assert.Empty(t, late)

	require.NoError(t, e.Emit("a", 2))
	assert.Equal(t, []int{2}, late)
}

func TestEmit_RemovedDuringDispatchIsSkipped(t *testing.T) {
	e := emitter.New[int]()

	var second *emitter.Subscription
	var calls int
	e.On("a", func(int) error { second.Unsubscribe(); return nil })
	second = e.On("a", func(int) error { calls++; return nil })

	require.NoError(t, e.Emit("a", 1))
	assert.Zero(t, calls)
}

func TestEmit_Reentrant(t *testing.T) {
	e := emitter.New[int]()

	var seen []int
	e.On("a", func(v int) error {
		seen = append(seen, v)
		if v < 3 {
			return e.Emit("a", v+1)
		}
		return nil
	})
	e.On("b", func(v int) error { seen = append(seen, -v); return nil })

	require.NoError(t, e.Emit("a", 1))
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestBag(t *testing.T) {
	e := emitter.New[int]()

	var calls int
	h := func(int) error { calls++; return nil }

	var bag emitter.Bag
	bag.Add(e.On("a", h), e.On("b", h))
	assert.Equal(t, 2, bag.Len())

	bag.Close()
	bag.Close()
	assert.Zero(t, bag.Len())

	require.NoError(t, e.Emit("a", 1))
	require.NoError(t, e.Emit("b", 1))
	assert.Zero(t, calls)
}
