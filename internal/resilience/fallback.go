package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllBackendsFailed is returned when every entry in a [FallbackGroup]
// fails or is rejected by its breaker.
var ErrAllBackendsFailed = errors.New("resilience: all backends failed")

// FallbackConfig configures the per-backend breaker created for each entry
// of a [FallbackGroup].
type FallbackConfig struct {
	Breaker BreakerConfig
	Logger  *slog.Logger
}

type groupEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// FallbackGroup holds an ordered list of interchangeable backends, each
// behind its own [Breaker]. Calls go to the first backend whose breaker
// admits them; on failure the next entry is tried in registration order.
type FallbackGroup[T any] struct {
	entries []groupEntry[T]
	cfg     FallbackConfig
	log     *slog.Logger
}

// NewFallbackGroup creates a group with primary as its first entry.
func NewFallbackGroup[T any](primaryName string, primary T, cfg FallbackConfig) *FallbackGroup[T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	g := &FallbackGroup[T]{cfg: cfg, log: cfg.Logger}
	g.Add(primaryName, primary)
	return g
}

// Add appends a backend. Backends are tried in the order they were added.
func (g *FallbackGroup[T]) Add(name string, value T) {
	bc := g.cfg.Breaker
	bc.Name = name
	if bc.Logger == nil {
		bc.Logger = g.log
	}
	g.entries = append(g.entries, groupEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bc),
	})
}

// Primary returns the first registered backend.
func (g *FallbackGroup[T]) Primary() T {
	return g.entries[0].value
}

// Do calls fn with each backend in order until one call succeeds. Entries
// with an open breaker are skipped. If no entry succeeds, the last error is
// wrapped in [ErrAllBackendsFailed].
func Do[T, R any](g *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var lastErr error
	for i := range g.entries {
		e := &g.entries[i]
		var out R
		err := e.breaker.Do(func() error {
			var callErr error
			out, callErr = fn(e.value)
			return callErr
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			g.log.Debug("skipping backend, breaker open", "backend", e.name)
		} else {
			g.log.Warn("backend failed, trying next", "backend", e.name, "error", err)
		}
	}
	var zero R
	return zero, fmt.Errorf("%w: %w", ErrAllBackendsFailed, lastErr)
}
