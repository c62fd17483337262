// Package uiloop runs closures one at a time on a single goroutine.
//
// The pool, classifier, dispatcher and pop-up controller are not safe for
// concurrent use; every caller outside the loop reaches them through Do or
// Post. Do must not be called from inside a loop job.
package uiloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("uiloop: closed")

const defaultQueueSize = 256

// Loop is a single logical actor.
type Loop struct {
	jobs   chan func()
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// New starts a loop with a queue of size buffered jobs.
func New(size int) *Loop {
	if size <= 0 {
		size = defaultQueueSize
	}
	l := &Loop{
		jobs:   make(chan func(), size),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case job := <-l.jobs:
			l.exec(job)
		case <-l.done:
			// Drain what was accepted before Close.
			for {
				select {
				case job := <-l.jobs:
					l.exec(job)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) exec(job func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("uiloop job panicked", "panic", r)
		}
	}()
	job()
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}
	if err := l.submit(ctx, job); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.exited:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn without waiting for it.
func (l *Loop) Post(fn func()) error {
	return l.submit(context.Background(), fn)
}

func (l *Loop) submit(ctx context.Context, job func()) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.jobs <- job:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, runs what is queued, and waits for the loop
// goroutine to exit.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
	<-l.exited
}
