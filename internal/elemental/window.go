package elemental

import (
	"fmt"
	"time"
)

// WindowOption configures a rolling window.
type WindowOption func(*windowConfig)

type windowConfig struct {
	maxSize    int
	maxSizeSet bool
	maxAge     time.Duration
	maxAgeSet  bool
}

// WithMaxSize caps the window at n entries, evicting the oldest first.
func WithMaxSize(n int) WindowOption {
	return func(c *windowConfig) {
		c.maxSize = n
		c.maxSizeSet = true
	}
}

// WithMaxAge evicts entries older than d relative to the newest entry's
// timestamp.
func WithMaxAge(d time.Duration) WindowOption {
	return func(c *windowConfig) {
		c.maxAge = d
		c.maxAgeSet = true
	}
}

// Window is a bounded FIFO history. Size and age caps are independent: an
// entry is evicted when it violates either. Not safe for concurrent use on
// its own; owners serialize access per tracked key.
type Window[T any] struct {
	entries []windowEntry[T]
	cfg     windowConfig
}

type windowEntry[T any] struct {
	value T
	at    time.Time
}

// NewWindow builds a rolling window. Configured caps must be positive;
// leaving a cap unset means unbounded on that axis.
func NewWindow[T any](opts ...WindowOption) (*Window[T], error) {
	var cfg windowConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSizeSet && cfg.maxSize <= 0 {
		return nil, fmt.Errorf("%w: window max size must be positive, got %d",
			ErrConfiguration, cfg.maxSize)
	}
	if cfg.maxAgeSet && cfg.maxAge <= 0 {
		return nil, fmt.Errorf("%w: window max age must be positive, got %s",
			ErrConfiguration, cfg.maxAge)
	}
	return &Window[T]{cfg: cfg}, nil
}

// Append records v at the given timestamp and runs eviction.
func (w *Window[T]) Append(v T, at time.Time) {
	w.entries = append(w.entries, windowEntry[T]{value: v, at: at})
	w.Evict()
}

// Evict drops entries violating either cap and reports how many were
// removed. It is idempotent and runs before any size-dependent read.
func (w *Window[T]) Evict() int {
	evicted := 0
	if w.cfg.maxSizeSet && len(w.entries) > w.cfg.maxSize {
		evicted += len(w.entries) - w.cfg.maxSize
		w.entries = append(w.entries[:0], w.entries[len(w.entries)-w.cfg.maxSize:]...)
	}
	if w.cfg.maxAgeSet && len(w.entries) > 0 {
		cutoff := w.entries[len(w.entries)-1].at.Add(-w.cfg.maxAge)
		keepFrom := 0
		for keepFrom < len(w.entries) && w.entries[keepFrom].at.Before(cutoff) {
			keepFrom++
		}
		if keepFrom > 0 {
			evicted += keepFrom
			w.entries = append(w.entries[:0], w.entries[keepFrom:]...)
		}
	}
	return evicted
}

// Len reports the entry count after eviction.
func (w *Window[T]) Len() int {
	w.Evict()
	return len(w.entries)
}

// Values returns the retained values oldest-first, as a copy.
func (w *Window[T]) Values() []T {
	w.Evict()
	out := make([]T, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.value
	}
	return out
}

// Newest returns the most recent entry's timestamp, or the zero time when
// the window is empty.
func (w *Window[T]) Newest() time.Time {
	w.Evict()
	if len(w.entries) == 0 {
		return time.Time{}
	}
	return w.entries[len(w.entries)-1].at
}
