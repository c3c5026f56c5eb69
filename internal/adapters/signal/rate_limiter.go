package signal

import (
	"golang.org/x/time/rate"
)

// newInboundLimiter bounds how many events one connection may submit.
// A zero rate means no limit.
func newInboundLimiter(eventsPerSecond float64, burst int) *rate.Limiter {
	if eventsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
}
