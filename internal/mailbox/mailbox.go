// Package mailbox drives an mstoykov/k6-taskqueue-lib TaskQueue without a
// JS event loop underneath it. The library expects a registerCallback
// that hands each pending Task to "the event loop" for execution; k6
// itself supplies a goja_nodejs event loop there. This package supplies a
// single goroutine reading off a channel instead, so every Task the
// queue ever schedules still runs on exactly one goroutine, one at a
// time, in submission order.
package mailbox

import (
	"context"

	taskqueue "github.com/mstoykov/k6-taskqueue-lib/taskqueue"
)

// New starts the mailbox goroutine and returns a TaskQueue bound to it.
// Call the returned cancel func to stop the goroutine once the queue
// itself has been closed.
func New() (*taskqueue.TaskQueue, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	tasks := make(chan taskqueue.Task)

	register := func() func(taskqueue.Task) {
		return func(t taskqueue.Task) {
			select {
			case tasks <- t:
			case <-ctx.Done():
			}
		}
	}

	go func() {
		for {
			select {
			case t := <-tasks:
				_ = t() //nolint:errcheck
			case <-ctx.Done():
				return
			}
		}
	}()

	return taskqueue.New(register), cancel
}
