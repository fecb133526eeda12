package controller

import (
	"context"
	"sync"
)

// Future is a value that settles exactly once, either with a value or an error.
type Future[T any] struct {
	value T
	err   error
	ready chan struct{}
	once  sync.Once
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{
		ready: make(chan struct{}),
	}
}

// Resolve settles the future with value. It reports false if it was already settled.
func (f *Future[T]) Resolve(value T) bool {
	settled := false
	f.once.Do(func() {
		f.value = value
		settled = true
		close(f.ready)
	})
	return settled
}

// Reject settles the future with err. It reports false if it was already settled.
func (f *Future[T]) Reject(err error) bool {
	settled := false
	f.once.Do(func() {
		f.err = err
		settled = true
		close(f.ready)
	})
	return settled
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.ready
}

// Get waits for the future to settle or for ctx to end.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.ready:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
