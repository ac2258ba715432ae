package lib

import (
	"context"
	"errors"

	"go.uber.org/atomic"
)

// Task wraps a function in a goroutine that can be started and stopped
// independently of its parent context.
type Task struct {
	runFunc func(ctx context.Context) error

	isRunning atomic.Bool
	stopCh    atomic.Value // chan struct{}
	doneCh    atomic.Value // chan struct{}
	cancel    atomic.Value // context.CancelFunc
	err       atomic.Error
}

func NewTaskFunc(f func(ctx context.Context) error) *Task {
	t := &Task{
		runFunc: f,
	}
	t.doneCh.Store(make(chan struct{}))
	return t
}

func (t *Task) Start(ctx context.Context) {
	if !t.isRunning.CompareAndSwap(false, true) {
		panic("task already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	t.cancel.Store(cancel)
	t.stopCh.Store(make(chan struct{}))

	go func() {
		err := t.runFunc(subCtx)
		isContextErr := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)

		// returned due to calling Stop()
		if ctx.Err() == nil && subCtx.Err() != nil && isContextErr {
			close(t.stopCh.Load().(chan struct{}))
			return
		}

		// returned on its own or due to cancelling the parent context
		t.err.Store(err)
		close(t.doneCh.Load().(chan struct{}))
		close(t.stopCh.Load().(chan struct{}))
	}()
}

// Stop cancels the task and returns a channel closed when the goroutine exits
func (t *Task) Stop() <-chan struct{} {
	if !t.isRunning.CompareAndSwap(true, false) {
		closedCh := make(chan struct{})
		close(closedCh)
		return closedCh
	}
	if c := t.cancel.Load(); c != nil {
		c.(context.CancelFunc)()
	}
	return t.stopCh.Load().(chan struct{})
}

// Done is closed when the task exits on its own or the parent context is
// cancelled. It is not closed on Stop().
func (t *Task) Done() <-chan struct{} {
	return t.doneCh.Load().(chan struct{})
}

func (t *Task) Err() error {
	return t.err.Load()
}
