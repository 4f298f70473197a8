// Package backoff provides retry delay strategies shared by the realtime
// reconnect loop and the webhook sender.
//
// A Strategy maps a 1-based attempt number to a delay:
//
//	s := backoff.Exponential{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2}
//	s.NextInterval(1) // 1s
//	s.NextInterval(3) // 4s
//	s.NextInterval(9) // 30s (capped)
//
// Exponential supports optional jitter. Zero jitter gives deterministic
// schedules, which is what the reconnect tests rely on.
package backoff
