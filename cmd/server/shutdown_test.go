package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

type fakeServer struct {
	stopped  chan struct{}
	once     sync.Once
	listenFn func() error
}

func newFakeServer() *fakeServer {
	return &fakeServer{stopped: make(chan struct{})}
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenFn != nil {
		return s.listenFn()
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.stopped) })
	return nil
}

func TestServeUntilSignal_WaitsForDrains(t *testing.T) {
	srv := newFakeServer()
	signals := make(chan os.Signal, 1)
	release := make(chan struct{})

	var mu sync.Mutex
	var order []string
	record := func(step string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, step)
	}

	returned := make(chan error, 1)
	go func() {
		returned <- serveUntilSignal(srv, signals,
			func() { record("stop") },
			func() {
				<-release
				record("drain")
			},
			func() { record("consumers") },
		)
	}()

	signals <- syscall.SIGTERM

	select {
	case <-returned:
		t.Fatal("returned before background writes drained")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("serveUntilSignal() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("did not return after drains finished")
	}

	want := []string{"stop", "drain", "consumers"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestServeUntilSignal_ListenError(t *testing.T) {
	srv := newFakeServer()
	boom := errors.New("address in use")
	srv.listenFn = func() error { return boom }

	if err := serveUntilSignal(srv, make(chan os.Signal), nil); !errors.Is(err, boom) {
		t.Fatalf("expected listen error, got %v", err)
	}
}
