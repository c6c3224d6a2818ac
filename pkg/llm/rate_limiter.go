// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiterConfig configures the request-rate token bucket.
type RateLimiterConfig struct {
	// RequestsPerSecond is the refill rate. Zero disables limiting.
	RequestsPerSecond float64

	// BurstCapacity is the bucket size. Default: 1.
	BurstCapacity int

	// Logger for limiter events
	Logger *zap.Logger
}

// RateLimiterMetrics tracks rate limiter behaviour.
type RateLimiterMetrics struct {
	TotalRequests     int64
	ThrottledRequests int64
	TotalWait         time.Duration
}

// RateLimiter spaces gateway attempts with a token bucket. Wait blocks the
// calling goroutine; there is no background queue because each session makes
// its model calls one at a time.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	lastRefill time.Time
	metrics    RateLimiterMetrics
	now        func() time.Time
}

// NewRateLimiter creates a rate limiter. It returns nil when
// RequestsPerSecond is not positive; a nil *RateLimiter never waits.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.RequestsPerSecond <= 0 {
		return nil
	}
	if config.BurstCapacity < 1 {
		config.BurstCapacity = 1
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &RateLimiter{
		config:     config,
		tokens:     float64(config.BurstCapacity),
		maxTokens:  float64(config.BurstCapacity),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}

	start := time.Now()
	throttled := false
	for {
		wait := rl.reserve()
		if wait == 0 {
			break
		}
		if !throttled {
			throttled = true
			rl.config.Logger.Debug("llm request throttled", zap.Duration("wait", wait))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	rl.mu.Lock()
	rl.metrics.TotalRequests++
	if throttled {
		rl.metrics.ThrottledRequests++
		rl.metrics.TotalWait += time.Since(start)
	}
	rl.mu.Unlock()
	return nil
}

// reserve takes a token if one is available and otherwise returns how long
// until the next one.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens = min(rl.maxTokens, rl.tokens+elapsed*rl.config.RequestsPerSecond)
	rl.lastRefill = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return 0
	}
	missing := 1.0 - rl.tokens
	return time.Duration(missing / rl.config.RequestsPerSecond * float64(time.Second))
}

// Metrics returns a snapshot of limiter metrics.
func (rl *RateLimiter) Metrics() RateLimiterMetrics {
	if rl == nil {
		return RateLimiterMetrics{}
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.metrics
}
