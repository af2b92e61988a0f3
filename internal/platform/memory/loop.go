package memory

import (
	"context"
	"errors"
	"sync"
)

var ErrBrowserClosed = errors.New("browser is closed")

type task struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// eventLoop runs tasks one at a time on a single goroutine, the same way a
// page or a worker runs its event handlers.
type eventLoop struct {
	name  string
	tasks chan task
	quit  chan struct{}
	once  sync.Once
}

func newEventLoop(name string) *eventLoop {
	l := &eventLoop{
		name:  name,
		tasks: make(chan task),
		quit:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *eventLoop) run() {
	for {
		select {
		case t := <-l.tasks:
			t.result <- t.fn(t.ctx)
		case <-l.quit:
			return
		}
	}
}

// do queues fn on the loop and waits for it to settle.
func (l *eventLoop) do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-l.quit:
		return ErrBrowserClosed
	default:
	}

	t := task{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case l.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return ErrBrowserClosed
	}
	
	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *eventLoop) stop() {
	l.once.Do(func() { close(l.quit) })
}
