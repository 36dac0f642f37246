package http

import (
	"sync"
	"time"
)

// writeLimiter caps ledger writes per client and route in fixed windows.
// Adds and clears are counted separately, so a burst of adds never locks a
// client out of clearing.
type writeLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[writeKey]*writeWindow

	stopPrune chan struct{}
	stopOnce  sync.Once
}

type writeKey struct {
	client string
	route  string
}

type writeWindow struct {
	start time.Time
	count int
}

func newWriteLimiter(limit int, window time.Duration) *writeLimiter {
	l := &writeLimiter{
		limit:     limit,
		window:    window,
		now:       time.Now,
		windows:   make(map[writeKey]*writeWindow),
		stopPrune: make(chan struct{}),
	}
	go l.pruneLoop()
	return l
}

func (l *writeLimiter) pruneLoop() {
	ticker := time.NewTicker(5 * l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.stopPrune:
			return
		}
	}
}

// prune forgets windows that ended before the current one could start.
func (l *writeLimiter) prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	pruned := 0
	for key, w := range l.windows {
		if w.start.Before(cutoff) {
			delete(l.windows, key)
			pruned++
		}
	}
	return pruned
}

func (l *writeLimiter) stop() {
	l.stopOnce.Do(func() { close(l.stopPrune) })
}

// allow counts one write by client on route. When the window is full it
// returns false and the time left until the window resets.
func (l *writeLimiter) allow(client, route string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := writeKey{client: client, route: route}
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &writeWindow{start: now, count: 1}
		return true, 0
	}
	if w.count >= l.limit {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}
