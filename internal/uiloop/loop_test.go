package uiloop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDoRunsOnLoop(t *testing.T) {
	l := New(0)
	defer l.Close()

	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Fatal("Do() returned before fn ran")
	}
}

func TestJobsRunSerially(t *testing.T) {
	l := New(0)
	defer l.Close()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(context.Background(), func() {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
			})
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Fatalf("counter = %d; want 100", counter)
	}
}

func TestDoAfterCloseFails(t *testing.T) {
	l := New(0)
	l.Close()

	err := l.Do(context.Background(), func() {})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Do() error = %v; want ErrClosed", err)
	}
	if err := l.Post(func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Post() error = %v; want ErrClosed", err)
	}
}

func TestCloseDrainsPostedWork(t *testing.T) {
	l := New(8)
	block := make(chan struct{})
	if err := l.Post(func() { <-block }); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	ran := make(chan struct{})
	if err := l.Post(func() { close(ran) }); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	close(block)
	l.Close()

	select {
	case <-ran:
	default:
		t.Fatal("queued job did not run before Close returned")
	}
}

func TestPanickingJobDoesNotStopLoop(t *testing.T) {
	l := New(0)
	defer l.Close()

	_ = l.Do(context.Background(), func() { panic("boom") })
	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Fatal("loop stopped after a panicking job")
	}
}

func TestDoHonorsContext(t *testing.T) {
	l := New(0)
	defer l.Close()

	release := make(chan struct{})
	_ = l.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v; want deadline exceeded", err)
	}
}
