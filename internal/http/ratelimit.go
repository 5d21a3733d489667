package http

import (
	"sync"
	"time"
)

const (
	rateLimitWindow      = time.Minute
	rateLimitMaxRequests = 60
)

// rateLimiter throttles mutating requests per client IP with a sliding
// one-minute window.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string][]time.Time
	stopClean chan struct{}
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		visitors:  make(map[string][]time.Time),
		stopClean: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rateLimitWindow)

	recent := rl.visitors[clientIP][:0]
	for _, t := range rl.visitors[clientIP] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rateLimitMaxRequests {
		rl.visitors[clientIP] = recent
		return false
	}

	rl.visitors[clientIP] = append(recent, now)
	return true
}

// cleanupLoop drops clients that have been quiet for a full window.
func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rateLimitWindow)
			for ip, times := range rl.visitors {
				if len(times) == 0 || !times[len(times)-1].After(cutoff) {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopClean:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	close(rl.stopClean)
}
