package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestTasksRunInOrder(t *testing.T) {
	q := New(WithLogger(quietLogger()))
	defer q.Close()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 20; i++ {
		i := i
		if err := q.Enqueue(func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		q.Drain()
	}
	waitIdle(t, q)

	if len(got) != 20 {
		t.Fatalf("ran %d tasks, want 20", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestAtMostOneTaskRuns(t *testing.T) {
	q := New(WithLogger(quietLogger()))
	defer q.Close()

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(func(ctx context.Context) error {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				active.Add(-1)
				return nil
			})
			q.Drain()
		}()
	}
	wg.Wait()
	waitIdle(t, q)

	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestFailedTaskDoesNotStall(t *testing.T) {
	var results []Result
	q := New(
		WithLogger(quietLogger()),
		WithResultHook(func(r Result) { results = append(results, r) }),
	)
	defer q.Close()

	boom := errors.New("boom")
	ran := false
	_ = q.Enqueue(func(ctx context.Context) error { return boom })
	_ = q.Enqueue(func(ctx context.Context) error { panic("kaboom") })
	_ = q.Enqueue(func(ctx context.Context) error { ran = true; return nil })
	q.Drain()
	waitIdle(t, q)

	if !ran {
		t.Error("task after failures should run")
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !errors.Is(results[0].Err, boom) {
		t.Errorf("results[0].Err = %v, want boom", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("panic should surface as an error")
	}
	if results[2].Err != nil {
		t.Errorf("results[2].Err = %v, want nil", results[2].Err)
	}
}

func TestDrainIsNoopWhileDraining(t *testing.T) {
	q := New(WithLogger(quietLogger()))
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = q.Enqueue(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	q.Drain()
	<-started

	for i := 0; i < 5; i++ {
		q.Drain()
	}
	_ = q.Enqueue(func(ctx context.Context) error { return nil })
	q.Drain()
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1 while first task blocks", q.Len())
	}
	close(release)
	waitIdle(t, q)
	if q.Len() != 0 {
		t.Errorf("Len = %d, want 0", q.Len())
	}
}

func TestWaitRespectsContext(t *testing.T) {
	q := New(WithLogger(quietLogger()))
	release := make(chan struct{})
	_ = q.Enqueue(func(ctx context.Context) error {
		<-release
		return nil
	})
	q.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want DeadlineExceeded", err)
	}
	close(release)
	q.Close()
}

func TestCloseCancelsRunningTask(t *testing.T) {
	q := New(WithLogger(quietLogger()))
	started := make(chan struct{})
	var taskErr error
	_ = q.Enqueue(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		taskErr = ctx.Err()
		return taskErr
	})
	pendingRan := false
	_ = q.Enqueue(func(ctx context.Context) error { pendingRan = true; return nil })
	q.Drain()
	<-started

	q.Close()
	if !errors.Is(taskErr, context.Canceled) {
		t.Errorf("task ctx err = %v, want Canceled", taskErr)
	}
	if pendingRan {
		t.Error("pending tasks should be discarded on close")
	}
	if err := q.Enqueue(func(context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue after Close = %v, want ErrClosed", err)
	}
}
