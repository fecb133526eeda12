// Package loop runs tasks one at a time on a single logical thread. State owned by
// the client (stores, views) is only touched from tasks, so it needs no locking.
package loop

import (
	"context"
	"sync"

	"nuclight.org/tgweb/pkg/logger"
)

type Loop struct {
	log logger.Logger

	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

func New(log logger.Logger) *Loop {
	return &Loop{
		log:  log,
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues task. It is safe to call from any goroutine, including from a task.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.tasks)
}

// Run executes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain executes queued tasks, including the ones they post, until the queue is
// empty. It returns the number of executed tasks.
func (l *Loop) Drain() int {
	n := 0
	for {
		task, ok := l.next()
		if !ok {
			return n
		}
		l.exec(task)
		n++
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}

	task := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return task, true
}

func (l *Loop) exec(task func()) {
	defer func() {
		if err := recover(); err != nil {
			l.log.Error("panic in task", "error", err)
		}
	}()

	task()
}
