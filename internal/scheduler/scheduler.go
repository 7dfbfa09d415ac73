/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package scheduler implements the refresh scheduler (spec §4.6): a
// periodic timer that rebuilds the directory from the IdP, with
// exponential backoff on failure and a force-refresh entry point that
// collapses concurrent callers onto one in-flight build, mirroring the
// teacher's mutex-guarded Nexus state machine adapted from a
// read/write database to an Idle/Refreshing/Backoff refresh cycle.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sapcc/go-bits/logg"
)

// Phase is the scheduler's current state (spec §4.6).
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRefreshing
	PhaseBackoff
)

// Options configures a Scheduler (spec §6).
type Options struct {
	RefreshInterval time.Duration
	MaxBackoff      time.Duration
	MaxRetries      int
}

// RefreshFunc performs one refresh cycle: fetch from the IdP, build a
// Snapshot, and publish it. A non-nil error marks the cycle failed.
type RefreshFunc func(ctx context.Context) error

// Scheduler runs RefreshFunc on a timer, with exponential backoff after
// failures and at most one refresh in flight at a time.
type Scheduler struct {
	opts    Options
	refresh RefreshFunc

	mutex       sync.Mutex
	phase       Phase
	failures    int
	lastErr     error
	healthy     bool
	refreshDone chan struct{} // closed (and replaced) each time a refresh completes
}

// New constructs a Scheduler. It starts in PhaseIdle and unhealthy until
// the first refresh succeeds.
func New(opts Options, refresh RefreshFunc) *Scheduler {
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 10 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 10
	}
	return &Scheduler{opts: opts, refresh: refresh, refreshDone: make(chan struct{})}
}

// Run drives the refresh loop until ctx is cancelled. The first refresh
// happens immediately; subsequent ones follow opts.RefreshInterval, or
// the current backoff delay after a failure.
func (s *Scheduler) Run(ctx context.Context) {
	delay := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		s.runOnce(ctx)

		s.mutex.Lock()
		if s.phase == PhaseBackoff {
			delay = s.backoffDelay()
		} else {
			delay = s.opts.RefreshInterval
		}
		s.mutex.Unlock()
	}
}

// ForceRefresh triggers an immediate refresh if none is already in
// flight, and blocks until that refresh (whoever triggered it) completes.
func (s *Scheduler) ForceRefresh(ctx context.Context) error {
	s.mutex.Lock()
	if s.phase == PhaseRefreshing {
		done := s.refreshDone
		s.mutex.Unlock()
		select {
		case <-done:
			return s.LastError()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mutex.Unlock()

	s.runOnce(ctx)
	return s.LastError()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mutex.Lock()
	for s.phase == PhaseRefreshing {
		// another refresh is in flight; wait for it so builds never overlap
		running := s.refreshDone
		s.mutex.Unlock()
		<-running
		s.mutex.Lock()
	}
	s.phase = PhaseRefreshing
	done := s.refreshDone
	s.mutex.Unlock()

	err := s.refresh(ctx)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastErr = err
	s.refreshDone = make(chan struct{})
	close(done)

	if err != nil {
		s.failures++
		s.phase = PhaseBackoff
		logg.Error("directory refresh failed (attempt %d/%d): %s", s.failures, s.opts.MaxRetries, err)
		if s.failures >= s.opts.MaxRetries {
			s.healthy = false
			logg.Error("directory refresh has failed %d times in a row, marking service unhealthy", s.failures)
		}
		return
	}

	if s.failures > 0 {
		logg.Info("directory refresh recovered after %d failed attempts", s.failures)
	}
	s.failures = 0
	s.healthy = true
	s.phase = PhaseIdle
}

// backoffDelay computes the next exponential backoff (spec §4.6): the
// first failure waits the plain RefreshInterval, and each further
// consecutive failure doubles it, capped at MaxBackoff throughout.
func (s *Scheduler) backoffDelay() time.Duration {
	delay := s.opts.RefreshInterval
	if delay > s.opts.MaxBackoff {
		delay = s.opts.MaxBackoff
	}
	for i := 1; i < s.failures && delay < s.opts.MaxBackoff; i++ {
		delay *= 2
	}
	if delay > s.opts.MaxBackoff {
		delay = s.opts.MaxBackoff
	}
	return delay
}

// Healthy reports whether the directory is in a servable state: at least
// one successful refresh has happened, and failures have not yet reached
// MaxRetries in a row.
func (s *Scheduler) Healthy() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.healthy
}

// LastError returns the error from the most recent refresh attempt, or
// nil if it succeeded.
func (s *Scheduler) LastError() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastErr
}

// CurrentPhase reports the scheduler's current phase.
func (s *Scheduler) CurrentPhase() Phase {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.phase
}
