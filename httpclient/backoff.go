package httpclient

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
	"time"
)

const (
	// MaxBackoff caps every computed delay
	MaxBackoff = 10 * time.Second
	// MaxJitter bounds the random term added to every delay
	MaxJitter = 200 * time.Millisecond
)

// BackoffDelay returns the wait before attempt index attempt+1, where attempt 0 is
// the delay between the first and second attempts:
// base*2^attempt plus a random jitter in [0, MaxJitter), capped at MaxBackoff.
func BackoffDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if base < 0 {
		base = 0
	}
	// 2^20 already exceeds any sane cap; clamp to avoid overflow
	if attempt > 20 {
		attempt = 20
	}

	d := base * time.Duration(1<<attempt)
	if base > MaxBackoff || d > MaxBackoff || d < 0 {
		d = MaxBackoff
	}

	d += jitter()
	if d > MaxBackoff {
		d = MaxBackoff
	}
	return d
}

func jitter() time.Duration {
	n, err := crand.Int(crand.Reader, big.NewInt(int64(MaxJitter)))
	if err != nil {
		return rand.N(MaxJitter)
	}
	return time.Duration(n.Int64())
}
