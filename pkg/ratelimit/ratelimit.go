package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks the last action time per key and enforces a minimum interval
// between actions. The map is capacity bounded: when full, the entry with the
// oldest access is evicted, so a long-lived process never grows it without
// limit.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	capacity int
	entries  map[string]time.Time
	now      func() time.Time
}

func New(interval time.Duration, capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		interval: interval,
		capacity: capacity,
		entries:  make(map[string]time.Time, capacity),
		now:      time.Now,
	}
}

// Allow reports whether the key may act now, and records the action if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if last, ok := l.entries[key]; ok {
		if now.Sub(last) < l.interval {
			return false
		}
		l.entries[key] = now
		return true
	}

	if len(l.entries) >= l.capacity {
		l.evictOldest()
	}
	l.entries[key] = now
	return true
}

// Len reports how many keys are currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, t := range l.entries {
		if first || t.Before(oldest) {
			oldestKey, oldest = k, t
			first = false
		}
	}
	delete(l.entries, oldestKey)
}
