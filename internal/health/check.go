package health

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Checker is evaluated per request: nil means pass, an error is the reason it
// failed.
type Checker interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Checker.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason ("unhealthy" if empty).
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	err := errors.New(reason)
	return func(context.Context) error { return err }
}

// All passes when every non-nil check passes. It stops at the first failure.
func All(ps ...Checker) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Timeout bounds p so a slow check cannot hold the health handler.
func Timeout(p Checker, d time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return p.Check(ctx)
	}
}

// ShutdownGate fails readiness once shutdown starts so the load balancer
// stops routing new page loads here while open sessions drain.
type ShutdownGate struct {
	reason atomic.Pointer[string]
}

// Set closes the gate. An empty reason reads as "draining".
func (g *ShutdownGate) Set(reason string) {
	if reason == "" {
		reason = "draining"
	}
	g.reason.Store(&reason)
}

// Clear reopens the gate.
func (g *ShutdownGate) Clear() { g.reason.Store(nil) }

func (g *ShutdownGate) Readiness() CheckFunc {
	return func(context.Context) error {
		if r := g.reason.Load(); r != nil {
			return errors.New(*r)
		}
		return nil
	}
}
