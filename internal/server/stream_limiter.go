package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// streamLimits gates new stream connections three ways: a per-instance cap,
// a per-IP cap, and a per-IP token-bucket rate on connection attempts.
type streamLimits struct {
	global *globalStreamLimiter
	perIP  *ipStreamLimiter
	rate   *streamRateLimiter
}

// limitReason says which gate rejected a connection. Used as a metric label.
type limitReason string

const (
	limitReasonGlobal limitReason = "global_limit"
	limitReasonPerIP  limitReason = "per_ip_limit"
	limitReasonRate   limitReason = "rate_limit"
)

func newStreamLimits(globalMax int64, perIPMax int, connsPerSecond float64, burst int) *streamLimits {
	return &streamLimits{
		global: &globalStreamLimiter{max: globalMax},
		perIP:  &ipStreamLimiter{ips: make(map[string]int), maxPer: perIPMax},
		rate:   newStreamRateLimiter(connsPerSecond, burst),
	}
}

// Acquire claims all three gates for the IP, or reports which one refused.
func (l *streamLimits) Acquire(ip string) (bool, limitReason) {
	if !l.rate.Allow(ip) {
		return false, limitReasonRate
	}
	if !l.global.Acquire() {
		return false, limitReasonGlobal
	}
	if !l.perIP.Acquire(ip) {
		l.global.Release()
		return false, limitReasonPerIP
	}
	return true, ""
}

func (l *streamLimits) Release(ip string) {
	l.perIP.Release(ip)
	l.global.Release()
}

// globalStreamLimiter caps concurrent streams per instance. Lock-free.
type globalStreamLimiter struct {
	current atomic.Int64
	max     int64
}

func (l *globalStreamLimiter) Acquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *globalStreamLimiter) Release() {
	l.current.Add(-1)
}

func (l *globalStreamLimiter) Current() int64 {
	return l.current.Load()
}

// ipStreamLimiter caps concurrent streams per remote IP.
type ipStreamLimiter struct {
	mu     sync.RWMutex
	ips    map[string]int
	maxPer int
}

func (l *ipStreamLimiter) Acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ips[ip] >= l.maxPer {
		return false
	}
	l.ips[ip]++
	return true
}

func (l *ipStreamLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.ips[ip]; count > 0 {
		l.ips[ip] = count - 1
		if l.ips[ip] == 0 {
			delete(l.ips, ip)
		}
	}
}

func (l *ipStreamLimiter) Count(ip string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ips[ip]
}

// streamRateLimiter throttles new connection attempts per IP via token bucket.
type streamRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const rateLimiterCleanupEvery = 5 * time.Minute

func newStreamRateLimiter(connsPerSecond float64, burst int) *streamRateLimiter {
	return &streamRateLimiter{
		limiters:  make(map[string]*rateLimiterEntry),
		rate:      rate.Limit(connsPerSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(rateLimiterCleanupEvery),
	}
}

func (l *streamRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Now().After(l.cleanupAt) {
		l.cleanup()
		l.cleanupAt = time.Now().Add(rateLimiterCleanupEvery)
	}

	entry, exists := l.limiters[ip]
	if !exists {
		entry = &rateLimiterEntry{
			limiter: rate.NewLimiter(l.rate, l.burst),
		}
		l.limiters[ip] = entry
	}

	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanup drops buckets idle for 10 minutes. Caller holds mu.
func (l *streamRateLimiter) cleanup() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}
