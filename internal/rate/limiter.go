package rate

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter *rate.Limiter
	last    time.Time
}

// IPLimiter rate limits callers by client IP. Idle entries are evicted after
// ttl. A non-positive rpm disables limiting.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	every    time.Duration
	burst    int
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewIPLimiter allows rpm requests per minute per IP with the given burst.
func NewIPLimiter(rpm, burst int, ttl time.Duration) *IPLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &IPLimiter{
		limiters: make(map[string]*entry),
		burst:    burst,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	if rpm > 0 {
		l.every = time.Minute / time.Duration(rpm)
	}
	if ttl > 0 {
		go l.reaper()
	}
	return l
}

func (l *IPLimiter) reaper() {
	t := time.NewTicker(l.ttl)
	defer t.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case now := <-t.C:
			l.mu.Lock()
			for ip, e := range l.limiters {
				if now.Sub(e.last) > l.ttl {
					delete(l.limiters, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends eviction. Safe to call more than once.
func (l *IPLimiter) Stop() { l.stopOnce.Do(func() { close(l.stopCh) }) }

// Len returns the number of tracked IPs.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Allow reports whether a request from ip may proceed now.
func (l *IPLimiter) Allow(ip string) bool {
	if l.every == 0 {
		return true
	}
	l.mu.Lock()
	e, ok := l.limiters[ip]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.limiters[ip] = e
	}
	e.last = time.Now()
	l.mu.Unlock()
	return e.limiter.Allow()
}

// IPFromRequest returns the first X-Forwarded-For hop, or the remote host.
func IPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
