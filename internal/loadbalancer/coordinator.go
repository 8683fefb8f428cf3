package loadbalancer

import (
	"context"
	"sync"

	"github.com/sidharthv96/caprover/internal/scheduler"
	"github.com/sidharthv96/caprover/pkg/logger"
)

// reloadSignal is delivered to the proxy process after a successful swap.
const reloadSignal = "SIGHUP"

// ConfigWriter regenerates config trees on disk. *Generator is the
// production implementation.
type ConfigWriter interface {
	RegenerateNamespace(ns Namespace) error
	RegenerateRoot() error
}

type reloadRequest struct {
	namespace Namespace
	done      chan error
}

// Coordinator serializes reload requests into a single active pipeline.
//
// At most one pipeline executes at any instant. Requests arriving while one
// is in flight are queued and drained one at a time, most recently enqueued
// first. The stack order is preserved behavior from the previous
// implementation of this controller; see DESIGN.md before changing it.
type Coordinator struct {
	generator    ConfigWriter
	sched        scheduler.Client
	proxyService string

	mu      sync.Mutex
	busy    bool
	pending []*reloadRequest
}

// NewCoordinator builds a Coordinator. sched may be nil in tests; the
// pipeline then skips the reload signal.
func NewCoordinator(generator ConfigWriter, sched scheduler.Client, proxyService string) *Coordinator {
	return &Coordinator{
		generator:    generator,
		sched:        sched,
		proxyService: proxyService,
	}
}

// RequestReload enqueues a regeneration of the given namespace and returns
// immediately. The returned channel receives exactly one value: the error
// of the request's pipeline run, or nil.
func (c *Coordinator) RequestReload(ns Namespace) <-chan error {
	req := &reloadRequest{namespace: ns, done: make(chan error, 1)}

	c.mu.Lock()
	c.pending = append(c.pending, req)
	start := !c.busy
	if start {
		c.busy = true
	}
	c.mu.Unlock()

	if start {
		go c.drain()
	}

	return req.done
}

// Reload enqueues a reload and waits for its completion.
func (c *Coordinator) Reload(ctx context.Context, ns Namespace) error {
	select {
	case err := <-c.RequestReload(ns):
		return err
	case <-ctx.Done():
		// The queued request still runs; only the wait is abandoned.
		return ctx.Err()
	}
}

// Busy reports whether a pipeline is currently executing.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// drain processes pending requests until none remain. An explicit loop, so
// bursty traffic cannot grow the call stack.
func (c *Coordinator) drain() {
	for {
		c.mu.Lock()
		n := len(c.pending)
		if n == 0 {
			c.busy = false
			c.mu.Unlock()
			return
		}
		req := c.pending[n-1]
		c.pending = c.pending[:n-1]
		c.mu.Unlock()

		err := c.runPipeline(req.namespace)
		if err != nil {
			logger.Error("Reload failed", "namespace", req.namespace, "error", err)
		}
		req.done <- err
		close(req.done)
	}
}

// runPipeline executes one full regenerate-write-swap-signal pass. An error
// aborts this request only; the coordinator keeps draining.
func (c *Coordinator) runPipeline(ns Namespace) error {
	if err := c.generator.RegenerateNamespace(ns); err != nil {
		return err
	}

	// The root config is refreshed on every reload so changes to the
	// platform's own domains propagate without a dedicated request.
	if ns != NamespaceRoot {
		if err := c.generator.RegenerateRoot(); err != nil {
			return err
		}
	}

	if c.sched != nil {
		ctx := context.Background()
		if err := c.sched.SendSignal(ctx, c.proxyService, reloadSignal); err != nil {
			return err
		}
	}

	logger.Info("Proxy configuration reloaded", "namespace", ns)
	return nil
}
