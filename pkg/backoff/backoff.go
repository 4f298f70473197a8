package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before the given attempt.
// Attempt numbers start at 1; implementations return 0 for attempt <= 0.
type Strategy interface {
	NextInterval(attempt int) time.Duration
}

// Default returns the reconnect schedule: 1s doubling up to 30s, no jitter.
func Default() Exponential {
	return Exponential{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
	}
}

// Exponential grows the delay by Multiplier on every attempt.
// Zero fields fall back to 1s initial, 30s max and multiplier 2.
type Exponential struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter spreads the delay by ±Jitter (0..1). Zero disables it.
	Jitter float64
}

// NextInterval returns min(Initial * Multiplier^(attempt-1) * (1±Jitter), Max).
func (e Exponential) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maxInterval := e.Max
	if maxInterval <= 0 {
		maxInterval = 30 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.Jitter > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.Jitter
	}
	if interval > float64(maxInterval) || math.IsInf(interval, 1) {
		interval = float64(maxInterval)
	}

	return time.Duration(interval)
}

// Linear grows the delay by Interval on every attempt, capped at Max when set.
type Linear struct {
	Interval time.Duration
	Max      time.Duration
}

// NextInterval returns min(Interval*attempt, Max).
func (l Linear) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	interval := l.Interval * time.Duration(attempt)
	if l.Max > 0 && interval > l.Max {
		return l.Max
	}
	return interval
}

// Fixed always waits Interval.
type Fixed struct {
	Interval time.Duration
}

// NextInterval returns Interval for every positive attempt.
func (f Fixed) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}
