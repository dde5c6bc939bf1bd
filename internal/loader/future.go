package loader

import (
	"context"
	"fmt"
)

// Future is the eventual result of a background task. A task that fails or
// panics resolves to absent.
type Future[T any] struct {
	done  chan struct{}
	value T
	ok    bool
	err   error
}

// Go runs fn in a new goroutine. When fn fails, fail is called with the error
// before the future resolves.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error), fail func(error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("panic: %v", r)
				f.ok = false
				if fail != nil {
					fail(f.err)
				}
			}
		}()

		v, err := fn(ctx)
		if err != nil {
			f.err = err
			if fail != nil {
				fail(err)
			}
			return
		}
		f.value, f.ok = v, true
	}()
	return f
}

// Resolved returns an already completed future holding v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: v, ok: true}
	close(f.done)
	return f
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future resolves or ctx is done. ok is false when the
// task failed, the context ended first, or f is nil.
func (f *Future[T]) Await(ctx context.Context) (value T, ok bool) {
	if f == nil {
		return value, false
	}
	select {
	case <-f.done:
		return f.value, f.ok
	case <-ctx.Done():
		return value, false
	}
}

// Wait blocks until the future resolves, ignoring its result.
func (f *Future[T]) Wait() {
	if f != nil {
		<-f.done
	}
}

// Err returns the failure of a resolved task.
func (f *Future[T]) Err() error {
	if f == nil {
		return nil
	}
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}
