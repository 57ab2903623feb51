// Package resilience keeps a test session alive when a speech or language
// provider degrades mid-run. A [Breaker] stops hammering a backend that has
// failed repeatedly, [FallbackGroup] fails over to the next configured
// backend, and [Retry] bounds transient-error retries with backoff.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and
// the cooldown has not elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker open")

// BreakerConfig tunes a [Breaker]. Zero fields take defaults.
type BreakerConfig struct {
	// Name labels the breaker in logs, typically the provider name.
	Name string

	// Threshold is the consecutive-failure count that opens the breaker.
	// Default 3: a voice turn takes seconds, so three failed turns in a row
	// already means the operator is waiting on a dead backend.
	Threshold int

	// Cooldown is how long the breaker stays open before allowing a probe
	// call. Default 20s.
	Cooldown time.Duration

	Logger *slog.Logger
}

// Breaker is a consecutive-failure circuit breaker. After Threshold failures
// in a row it rejects calls for Cooldown, then lets a single probe through.
// A successful probe closes it again; a failed probe restarts the cooldown.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	log       *slog.Logger

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a [Breaker] from cfg.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 20 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Breaker{
		name:      cfg.Name,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		log:       cfg.Logger,
	}
}

// Do runs fn unless the breaker is open, in which case it returns
// [ErrBreakerOpen] without calling fn. fn's error is returned as-is.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.settle(err)
	return err
}

// Open reports whether calls would currently be rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && time.Since(b.openedAt) < b.cooldown
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.threshold {
		return nil
	}
	if time.Since(b.openedAt) < b.cooldown {
		return ErrBreakerOpen
	}
	if b.probing {
		// Another goroutine already holds the probe slot.
		return ErrBreakerOpen
	}
	b.probing = true
	b.log.Info("breaker allowing probe call", "breaker", b.name)
	return nil
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasProbe := b.probing
	b.probing = false

	if err == nil {
		if b.failures >= b.threshold {
			b.log.Info("breaker closed", "breaker", b.name)
		}
		b.failures = 0
		return
	}

	b.failures++
	if wasProbe || b.failures == b.threshold {
		b.openedAt = time.Now()
		b.log.Warn("breaker opened",
			"breaker", b.name,
			"consecutive_failures", b.failures,
			"cooldown", b.cooldown)
	}
}
