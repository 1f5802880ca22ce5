// Package eventloop runs posted functions one at a time on a single goroutine.
// Everything that mutates tracks and albums goes through a Loop, so that
// state owned by the loop never needs locking.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// ErrStopped is returned by Call when the loop is not running.
var ErrStopped = errors.New("event loop stopped")

// Loop is a FIFO queue of functions drained by Run.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once

	// OnPanic is called on the loop goroutine when a posted function panics.
	// The loop keeps running. If nil the panic is swallowed.
	OnPanic func(recovered any, stack []byte)
}

// New creates a loop whose queue holds up to size pending functions before
// Post blocks.
func New(size int) *Loop {
	if size < 1 {
		size = 1
	}
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil && l.OnPanic != nil {
			l.OnPanic(r, debug.Stack())
		}
	}()
	fn()
}

// Post queues fn to run on the loop. It returns false if the loop has stopped.
// Post is safe to call from any goroutine, including the loop itself as long
// as the queue is not full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("panic: %v", r)
			}
		}()
		result <- fn()
	}

	select {
	case l.queue <- wrapped:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
