// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces completion requests to stay under a per-minute budget.
// Waiting is the only effect; nothing is retried. A nil *Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing requestsPerMinute requests, or nil when
// requestsPerMinute is not positive.
func NewPacer(requestsPerMinute int) *Pacer {
	if requestsPerMinute <= 0 {
		return nil
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
