package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"
)

const shutdownTimeout = 30 * time.Second

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs srv until a signal arrives, then calls stop, shuts the
// server down and runs each drain in order. It returns only after the drains
// finish, so deferred closes in main never race background writes.
func serveUntilSignal(srv httpServer, signals <-chan os.Signal, stop func(), drains ...func()) error {
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-signals

		log.Println("Shutting down...")
		if stop != nil {
			stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}

		for _, drain := range drains {
			drain()
		}
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	log.Println("✓ Shutdown complete")
	return nil
}
