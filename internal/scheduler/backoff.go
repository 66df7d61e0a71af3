package scheduler

import (
	"time"

	"github.com/lisahq/lisaflow/pkg/api"
)

const (
	DefaultInitBackoff = api.Second
	DefaultMaxBackoff  = 60 * api.Second
)

// backoffDelay computes the delay before retry attempt n (1-based) under
// the given policy. Exponential doubles the base per attempt, linear grows
// by the base per attempt, fixed stays constant; all are capped by the
// policy's max backoff
func backoffDelay(rc api.RetryConfig, attempt int) time.Duration {
	base := rc.InitBackoff
	if base <= 0 {
		base = DefaultInitBackoff
	}
	maxDelay := rc.MaxBackoff
	if maxDelay <= 0 {
		maxDelay = DefaultMaxBackoff
	}

	var ms int64
	switch rc.BackoffType {
	case api.BackoffTypeFixed:
		ms = base
	case api.BackoffTypeLinear:
		ms = base * int64(attempt)
	default:
		ms = base
		for i := 1; i < attempt; i++ {
			ms *= 2
			if ms >= maxDelay {
				break
			}
		}
	}
	if ms > maxDelay {
		ms = maxDelay
	}
	return time.Duration(ms) * time.Millisecond
}
