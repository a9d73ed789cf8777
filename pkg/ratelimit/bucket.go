// Package ratelimit provides a waiting token bucket shared by all chat
// model invocations. Callers block until capacity is available; no call
// is ever dropped.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Config struct {
	// RequestsPerSecond is the sustained refill rate.
	RequestsPerSecond float64
	// Burst is the bucket capacity.
	Burst float64
	// CheckEvery is how often a blocked caller re-checks the bucket.
	CheckEvery time.Duration
}

func NewDefaultConfig() Config {
	return Config{
		RequestsPerSecond: 1,
		Burst:             10,
		CheckEvery:        500 * time.Millisecond,
	}
}

type Bucket struct {
	mu         sync.Mutex
	cfg        Config
	tokens     float64
	lastRefill time.Time
}

func NewBucket(cfg Config) *Bucket {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = 500 * time.Millisecond
	}
	return &Bucket{
		cfg:        cfg,
		tokens:     cfg.Burst,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done. Tokens refill
// continuously at the configured rate up to the burst capacity.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		if b.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.CheckEvery):
		}
	}
}

// Allow reports whether a token was immediately available and consumes
// it if so.
func (b *Bucket) Allow() bool {
	return b.tryAcquire()
}

func (b *Bucket) tryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.cfg.Burst, b.tokens+elapsed*b.cfg.RequestsPerSecond)
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
