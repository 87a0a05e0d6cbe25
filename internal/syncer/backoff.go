package syncer

import "time"

const (
	// maxConsecutiveFailures is the circuit breaker threshold: this many
	// consecutive failed poll cycles stop automatic sync entirely.
	maxConsecutiveFailures = 5

	baseBackoff = 5 * time.Second
	maxBackoff  = 5 * time.Minute
)

// backoffDelay returns the delay before the next poll after the given number
// of consecutive failures. The delay doubles from baseBackoff per failure,
// never drops below the configured interval, and never exceeds maxBackoff.
func backoffDelay(interval time.Duration, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	delay := baseBackoff
	for i := 1; i < failures && delay < maxBackoff; i++ {
		delay *= 2
	}
	if delay < interval {
		delay = interval
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}
