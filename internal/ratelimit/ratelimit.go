// Package ratelimit bounds how many analysis requests a run and a day may
// spend, so a noisy campaign cannot drain the whole model budget.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned once the daily budget is spent. Callers
// can match it with errors.Is to back off instead of treating each denial
// as a hard failure.
var ErrBudgetExhausted = errors.New("daily analysis budget exhausted")

type AnalysisLimiter struct {
	mu        sync.Mutex
	dayCount  int
	maxPerDay int
	resetAt   time.Time
}

// NewAnalysisLimiter creates a limiter with a daily cap. A cap of 0 means
// unlimited.
func NewAnalysisLimiter(maxPerDay int) *AnalysisLimiter {
	return &AnalysisLimiter{
		maxPerDay: maxPerDay,
		resetAt:   time.Now().Add(24 * time.Hour),
	}
}

// Acquire consumes one request from the daily budget, or reports why it
// cannot.
func (rl *AnalysisLimiter) Acquire() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()

	if rl.maxPerDay > 0 && rl.dayCount >= rl.maxPerDay {
		return fmt.Errorf("%w (%d/%d)", ErrBudgetExhausted, rl.dayCount, rl.maxPerDay)
	}

	rl.dayCount++
	return nil
}

// Remaining reports how many requests are left today; -1 means unlimited.
func (rl *AnalysisLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()

	if rl.maxPerDay <= 0 {
		return -1
	}
	left := rl.maxPerDay - rl.dayCount
	if left < 0 {
		left = 0
	}
	return left
}

func (rl *AnalysisLimiter) checkReset() {
	if time.Now().After(rl.resetAt) {
		rl.dayCount = 0
		rl.resetAt = time.Now().Add(24 * time.Hour)
	}
}
