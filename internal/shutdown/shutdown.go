// Package shutdown implements the Shutdown Controller (SPEC_FULL.md
// §4.13): on SIGTERM/SIGINT, stop accepting new connections, drain every
// tenant, wait for in-flight requests to finish (bounded by a deadline),
// then tear the process down. Grounded on cmd/appserver/main.go's
// signal.Notify + context.WithTimeout shutdown sequence.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/pkg/logger"
)

// DefaultDrainTimeout bounds how long the shutdown sequence waits for
// active requests to reach zero across all tenants before forcing shutdown,
// per spec.md §4.13.
const DefaultDrainTimeout = 30 * time.Second

// drainPoll is how often the shutdown sequence re-checks active request counts while
// waiting for tenants to finish draining.
const drainPoll = 100 * time.Millisecond

// Stoppable is the HTTP Front End's half of the shutdown sequence.
type Stoppable interface {
	StopAccepting()
	Shutdown(ctx context.Context) error
}

// Controller owns the shutdown sequence for one server/registry pair.
type Controller struct {
	server       Stoppable
	registry     *tenant.Registry
	log          *logger.Logger
	drainTimeout time.Duration
}

// New returns a Controller with the default drain timeout.
func New(server Stoppable, registry *tenant.Registry, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.NewDefault("shutdown")
	}
	return &Controller{server: server, registry: registry, log: log, drainTimeout: DefaultDrainTimeout}
}

// WithDrainTimeout overrides the default drain timeout; returns c for
// chaining.
func (c *Controller) WithDrainTimeout(d time.Duration) *Controller {
	c.drainTimeout = d
	return c
}

// Wait blocks until SIGINT or SIGTERM, then runs the shutdown sequence:
// stop accepting, drain every tenant, wait up to the drain timeout, tear
// the HTTP server down, then destroy every tenant's runtime.
func (c *Controller) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	c.log.Infof("received signal %v, shutting down", sig)
	c.shutdown()
}

func (c *Controller) shutdown() {
	c.server.StopAccepting()

	tenants := c.registry.All()
	for _, t := range tenants {
		t.InitiateDrain()
	}

	cutoff := time.Now().Add(c.drainTimeout)
	for time.Now().Before(cutoff) {
		if allDrained(tenants) {
			break
		}
		time.Sleep(drainPoll)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil {
		c.log.Errorf("http server shutdown: %v", err)
	}

	for _, t := range tenants {
		t.Destroy()
	}
	c.log.Info("shutdown complete")
}

func allDrained(tenants []*tenant.Tenant) bool {
	for _, t := range tenants {
		if !t.IsDrained() {
			return false
		}
	}
	return true
}
