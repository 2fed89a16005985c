package http

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// windowDuration is the sliding window for the per-client request cap.
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle client entries are swept.
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a client may be silent before its entry is dropped.
	idleTimeout = 10 * time.Minute
)

// RateLimiter caps resolution requests per client with a sliding one-minute
// window. Resolutions are expensive (a full audio download each), so the
// limit defends the host more than the upstream.
type RateLimiter struct {
	limitPerMinute int
	entries        map[string]*clientEntry
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
}

type clientEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// NewRateLimiter creates a limiter allowing limitPerMinute requests per
// client key. A non-positive limit disables limiting.
func NewRateLimiter(limitPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		stopCleanup:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}

// Allow reports whether another request from the client identified by key
// fits inside the window, recording it when it does.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limitPerMinute <= 0 {
		return true
	}
	now := time.Now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	entry, exists := rl.entries[key]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, rl.limitPerMinute+1),
		}
		rl.entries[key] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= rl.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// Stats reports limiter state for monitoring.
func (rl *RateLimiter) Stats() Stats {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	return Stats{
		ActiveClients:  len(rl.entries),
		LimitPerMinute: rl.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains rate limiter statistics.
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}

func (rl *RateLimiter) cleanup() {
	rl.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.performCleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) performCleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	for key, entry := range rl.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
		}
	}
}

// clientKey identifies the requesting client by address, ignoring the
// ephemeral port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
