package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Supervisor is a Counter that serves from the shared primary while it is
// healthy and from the local fallback otherwise. A failed or slow primary
// call flips it into degraded mode; the probe loop flips it back once the
// primary answers again. Counts accumulated locally are not copied back.
type Supervisor struct {
	primary  Counter
	fallback Counter
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
	observer Observer
	degraded atomic.Bool
}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	// Timeout bounds each primary call. Defaults to 250ms.
	Timeout time.Duration
	// ProbeInterval is the health check period. Defaults to 5s.
	ProbeInterval time.Duration
	Logger        *slog.Logger
	Observer      Observer
}

// NewSupervisor builds a supervisor in healthy mode; call Init to probe
// the primary before serving traffic.
func NewSupervisor(primary, fallback Counter, opts SupervisorOptions) *Supervisor {
	if opts.Timeout <= 0 {
		opts.Timeout = 250 * time.Millisecond
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Supervisor{
		primary:  primary,
		fallback: fallback,
		timeout:  opts.Timeout,
		interval: opts.ProbeInterval,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
}

// Init probes the primary once. An unreachable primary starts the
// supervisor degraded instead of failing startup.
func (s *Supervisor) Init(ctx context.Context) {
	if err := s.pingPrimary(ctx); err != nil {
		s.markDegraded(err)
		return
	}
	s.observer.SetDegraded(false)
}

// Run probes the primary every interval until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Probe(ctx)
		}
	}
}

// Probe checks the primary and updates the mode.
func (s *Supervisor) Probe(ctx context.Context) {
	err := s.pingPrimary(ctx)
	switch {
	case err != nil && ctx.Err() == nil:
		s.markDegraded(err)
	case err == nil && s.degraded.CompareAndSwap(true, false):
		s.logger.Info("rate limit backend recovered, using shared counters")
		s.observer.SetDegraded(false)
	}
}

// Degraded reports whether the local fallback is serving.
func (s *Supervisor) Degraded() bool { return s.degraded.Load() }

func (s *Supervisor) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration, ceiling int64) (int64, error) {
	if !s.degraded.Load() {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		n, err := s.primary.IncrementWithExpiry(callCtx, key, ttl, ceiling)
		cancel()
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		s.markDegraded(err)
	}
	return s.fallback.IncrementWithExpiry(ctx, key, ttl, ceiling)
}

func (s *Supervisor) Get(ctx context.Context, key string) (int64, error) {
	if !s.degraded.Load() {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		n, err := s.primary.Get(callCtx, key)
		cancel()
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		s.markDegraded(err)
	}
	return s.fallback.Get(ctx, key)
}

// Clear removes key from both backends so a reset also holds after a mode
// switch.
func (s *Supervisor) Clear(ctx context.Context, key string) error {
	if !s.degraded.Load() {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.primary.Clear(callCtx, key)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.markDegraded(err)
		}
	}
	return s.fallback.Clear(ctx, key)
}

// Ping reports the health of the active backend.
func (s *Supervisor) Ping(ctx context.Context) error {
	if s.degraded.Load() {
		return s.fallback.Ping(ctx)
	}
	return s.pingPrimary(ctx)
}

func (s *Supervisor) pingPrimary(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.primary.Ping(ctx)
}

func (s *Supervisor) markDegraded(err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.logger.Warn("rate limit backend unavailable, using local counters", slog.Any("error", err))
		s.observer.SetDegraded(true)
	}
}
