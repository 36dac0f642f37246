package http

import (
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*writeLimiter, *time.Time) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	l := newWriteLimiter(limit, window)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestWriteLimiterWindow(t *testing.T) {
	l, now := newTestLimiter(3, time.Minute)
	defer l.stop()

	for i := 0; i < 3; i++ {
		if ok, _ := l.allow("10.0.0.1", "/"); !ok {
			t.Fatalf("write %d should be allowed", i+1)
		}
	}

	*now = now.Add(20 * time.Second)
	ok, retry := l.allow("10.0.0.1", "/")
	if ok {
		t.Fatalf("fourth write in the window should be refused")
	}
	if retry != 40*time.Second {
		t.Fatalf("retry after = %v, want 40s", retry)
	}

	*now = now.Add(40 * time.Second)
	if ok, _ := l.allow("10.0.0.1", "/"); !ok {
		t.Fatalf("a new window should allow writes again")
	}
}

func TestWriteLimiterKeys(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.stop()

	cases := []struct {
		client, route string
		want          bool
	}{
		{"10.0.0.1", "/", true},
		{"10.0.0.1", "/", false},
		{"10.0.0.1", "/clear", true},
		{"10.0.0.2", "/", true},
	}
	for i, tc := range cases {
		if ok, _ := l.allow(tc.client, tc.route); ok != tc.want {
			t.Fatalf("case %d (%s %s): allow = %v, want %v", i, tc.client, tc.route, ok, tc.want)
		}
	}
}

func TestWriteLimiterPrune(t *testing.T) {
	l, now := newTestLimiter(1, time.Minute)
	defer l.stop()
	defer l.stop()

	l.allow("10.0.0.1", "/")
	*now = now.Add(90 * time.Second)
	l.allow("10.0.0.2", "/")

	if n := l.prune(); n != 1 {
		t.Fatalf("pruned %d windows, want 1", n)
	}
	if _, ok := l.windows[writeKey{client: "10.0.0.2", route: "/"}]; !ok {
		t.Fatalf("current window was pruned")
	}
}
