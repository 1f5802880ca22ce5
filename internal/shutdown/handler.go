// Package shutdown cancels a root context on SIGINT/SIGTERM and runs
// registered cleanups once.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler manages graceful shutdown
type Handler struct {
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	cleanupFns []func()
	once       sync.Once
}

// New creates a shutdown handler whose context derives from parent.
func New(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	return &Handler{ctx: ctx, cancel: cancel}
}

// Context is cancelled when shutdown starts.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers fn to run on shutdown. Cleanups run in reverse
// order of registration.
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Listen starts shutdown on the first SIGINT or SIGTERM. A second signal
// exits immediately.
func (h *Handler) Listen() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
		case <-h.ctx.Done():
			signal.Stop(sigChan)
			return
		}
		go h.Shutdown()
		<-sigChan
		os.Exit(130)
	}()
}

// Shutdown cancels the context and runs the cleanups. Only the first call
// has an effect.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		fns := h.cleanupFns
		h.cleanupFns = nil
		h.mu.Unlock()

		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	})
}
