package eventloop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T, l *Loop) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return cancel
}

func TestPostRunsInOrder(t *testing.T) {
	l := New(16)
	startLoop(t, l)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted functions did not run")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order = %v", got)
		}
	}
}

func TestPostFromManyGoroutines(t *testing.T) {
	l := New(4)
	startLoop(t, l)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { counter++ })
		}()
	}
	wg.Wait()

	var got int
	if err := l.Call(context.Background(), func() error {
		got = counter
		return nil
	}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 50 {
		t.Errorf("counter = %d, want 50", got)
	}
}

func TestCallReturnsError(t *testing.T) {
	l := New(1)
	startLoop(t, l)

	want := errors.New("boom")
	if err := l.Call(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Call() = %v, want %v", err, want)
	}
}

func TestCallRecoversPanic(t *testing.T) {
	l := New(1)
	startLoop(t, l)

	err := l.Call(context.Background(), func() error { panic("bad") })
	if err == nil {
		t.Fatal("expected error from panicking call")
	}
	// The loop survives.
	if err := l.Call(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("loop stopped after panic: %v", err)
	}
}

func TestPostPanicReported(t *testing.T) {
	l := New(1)
	reported := make(chan any, 1)
	l.OnPanic = func(r any, _ []byte) { reported <- r }
	startLoop(t, l)

	l.Post(func() { panic("oops") })

	select {
	case r := <-reported:
		if r != "oops" {
			t.Errorf("recovered = %v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panic not reported")
	}
}

func TestStoppedLoop(t *testing.T) {
	l := New(1)
	cancel := startLoop(t, l)
	cancel()
	<-l.Done()

	if l.Post(func() {}) {
		t.Error("Post succeeded on stopped loop")
	}
	if err := l.Call(context.Background(), func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("Call() = %v, want ErrStopped", err)
	}
}
