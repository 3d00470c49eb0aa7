// Package resilience provides the fault-tolerance primitives the indexer
// wraps around fallible collaborators: a circuit breaker for the spell-check
// backend and exponential-backoff retry for store commits.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned while a breaker is rejecting calls.
var ErrOpen = errors.New("circuit open")

// BreakerConfig controls when a breaker trips and how it recovers.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before tripping
	ResetTimeout     time.Duration // cool-down before a half-open probe
}

// Breaker rejects calls after a run of consecutive failures and probes the
// collaborator again once the cool-down elapses. A successful probe closes
// the circuit; a failed one reopens it.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	open     bool
	probing  bool
	failures int
	lastFail time.Time

	logger *slog.Logger
}

// NewBreaker creates a Breaker, filling in defaults for zero config values.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "breaker", "name", name),
	}
}

// Execute runs fn unless the circuit is open, recording the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && time.Since(b.lastFail) < b.cfg.ResetTimeout
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	if time.Since(b.lastFail) < b.cfg.ResetTimeout {
		return fmt.Errorf("%w: %s", ErrOpen, b.name)
	}
	if b.probing {
		return fmt.Errorf("%w: %s (probe in flight)", ErrOpen, b.name)
	}
	b.probing = true
	b.logger.Info("circuit probing after cool-down", "cool_down", b.cfg.ResetTimeout)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.open {
			b.logger.Info("circuit closed")
		}
		b.open = false
		b.probing = false
		b.failures = 0
		return
	}
	b.failures++
	b.lastFail = time.Now()
	b.probing = false
	if !b.open && b.failures >= b.cfg.FailureThreshold {
		b.open = true
		b.logger.Warn("circuit opened",
			"consecutive_failures", b.failures,
			"threshold", b.cfg.FailureThreshold,
		)
	} else if b.open {
		b.logger.Warn("circuit probe failed")
	}
}
