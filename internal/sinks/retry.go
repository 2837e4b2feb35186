// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sinks

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"envsim/internal/sim"
)

// RetryConfig bounds the retry behavior of a retrying sink.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig suits a live loop ticking once per second or slower.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  50 * time.Millisecond,
	MaxDelay:   500 * time.Millisecond,
}

// Retry decorates a sink with bounded exponential backoff + jitter. A write
// that still fails after the last attempt returns the final error; the
// caller drops the point and the simulation continues.
type Retry struct {
	inner Sink
	cfg   RetryConfig
	rng   *rand.Rand

	// OnRetry, if set, is told about every failed attempt before a retry.
	OnRetry func(attempt int, err error)
}

// NewRetry wraps inner with cfg. A zero cfg falls back to the defaults.
func NewRetry(inner Sink, cfg RetryConfig) *Retry {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultRetryConfig
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	return &Retry{inner: inner, cfg: cfg, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *Retry) Write(ctx context.Context, p sim.Point) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		lastErr = r.inner.Write(ctx, p)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < r.cfg.MaxRetries {
			if r.OnRetry != nil {
				r.OnRetry(attempt, lastErr)
			}
			select {
			case <-time.After(r.backoffDelay(attempt)):
			case <-ctx.Done():
				return lastErr
			}
		}
	}
	return fmt.Errorf("sink write failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

func (r *Retry) Close() error { return r.inner.Close() }

// backoffDelay doubles the base per attempt, caps it, and adds up to 25%
// jitter to avoid retry alignment.
func (r *Retry) backoffDelay(attempt int) time.Duration {
	delay := r.cfg.BaseDelay * time.Duration(1<<uint(attempt))
	if delay > r.cfg.MaxDelay {
		delay = r.cfg.MaxDelay
	}
	jitter := time.Duration(r.rng.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
