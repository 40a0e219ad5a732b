// Package server coordinates the long-running pieces of the arena binary:
// services are started in registration order and unwound in reverse when a
// termination signal arrives or one of them fails.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is one long-running component under supervision.
type Service interface {
	// Start runs the service. Blocking services return when stopped;
	// returning a non-nil error tears the whole process down.
	Start() error
	// Stop asks the service to shut down. It must be safe to call after
	// Start has returned.
	Stop()
}

// FuncService wraps a start/stop function pair as a Service. A nil StopFn
// makes Stop a no-op.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }

func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

type namedService struct {
	name string
	svc  Service
}

// Supervisor runs a fixed set of named services. Add every service before
// calling Run; the set is not safe to grow concurrently with Run.
type Supervisor struct {
	logger   *zap.Logger
	services []namedService
}

// NewSupervisor creates an empty Supervisor.
//
// Precondition: logger must be non-nil.
func NewSupervisor(logger *zap.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Add registers a named service. Services start in Add order and stop in
// reverse order.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (s *Supervisor) Add(name string, svc Service) {
	s.services = append(s.services, namedService{name: name, svc: svc})
}

// Run starts every registered service, then blocks until SIGINT or SIGTERM
// arrives, ctx is cancelled, or a service's Start returns an error. It then
// stops all services in reverse order and returns the triggering error, if
// any.
//
// Postcondition: every service's Stop has been called when Run returns.
func (s *Supervisor) Run(ctx context.Context) error {
	start := time.Now()

	errCh := make(chan error, len(s.services))
	for _, ns := range s.services {
		ns := ns
		s.logger.Info("starting service", zap.String("service", ns.name))
		go func() {
			if err := ns.svc.Start(); err != nil {
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	s.logger.Info("all services started",
		zap.Int("count", len(s.services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		s.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	case runErr = <-errCh:
		s.logger.Error("service failed, shutting down", zap.Error(runErr))
	}

	shutdownStart := time.Now()
	for i := len(s.services) - 1; i >= 0; i-- {
		ns := s.services[i]
		s.logger.Info("stopping service", zap.String("service", ns.name))
		ns.svc.Stop()
	}
	s.logger.Info("shutdown complete",
		zap.Duration("shutdown", time.Since(shutdownStart)),
		zap.Duration("uptime", time.Since(start)),
	)
	return runErr
}
