package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/heriman22/blog-main/internal/httpmw"
)

// DefaultMaxVisitors bounds the visitor map. Past it, requests from IPs
// not already tracked are rejected until eviction frees room.
const DefaultMaxVisitors = 100_000

// visitor tracks a single IPs limiter and last activity
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged tracks whether we have already emitted the first-denial log
	// resets when the entry is evicted and re-created
	logged bool
}

// IPLimiter holds per-IP rate limiters with background eviction
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	// rate controls: requests per second and burst ceiling
	perSecond rate.Limit
	burst     int

	// ttl controls how long an idle IP stays in the map before cleanup evicts it
	ttl time.Duration

	maxVisitors int

	// OnFirstDenied is called once per visitor when they first get rate limited
	// ip is the raw IP string (no port)
	OnFirstDenied func(ip string)

	// OnDenied is called on every denied request, used for incrementing prometheus counter
	OnDenied func(ip string)

	// OnCapacity is called once each time the map fills up
	OnCapacity func()
	atCapacity bool

	now func() time.Time
}

type Option func(*IPLimiter)

// WithRate sets the request limit bucket size and the refill rate.
// burst is the total capacity of the bucket, perSecond is how many tokens are added to the bucket each second.
// WithRate(10, 50) allows 50 requests at once, then refills at a rate of 10 requests per second
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle IP stays in the map before cleanup
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) {
		l.ttl = d
	}
}

// WithMaxVisitors caps the number of tracked IPs.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) {
		l.maxVisitors = n
	}
}

// WithOnFirstDenied sets a callback for the first denial per visitor, used for logging.
// Separate from OnDenied: we log once, but count every denial.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) {
		l.OnFirstDenied = fn
	}
}

// WithOnDenied sets a callback for every denied request. used for incrementing prometheus counters
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) {
		l.OnDenied = fn
	}
}

// WithOnCapacity sets a callback fired when the visitor map first fills.
// It fires again only after eviction has freed room.
func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) {
		l.OnCapacity = fn
	}
}

// New creates an IPLimiter and starts the background cleanup goroutine,
// which stops when ctx is done.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: DefaultMaxVisitors,
		now:         time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	if l.ttl <= 0 {
		l.ttl = 5 * time.Minute
	}
	go l.cleanup(ctx)
	return l
}

// allow checks whether the given IP is within its rate limit. also handles visitor creation and logging for first denial.
// Returns true if the request should proceed, false if it should be rejected.
func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	v, exists := l.visitors[ip]
	if !exists {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			fire := !l.atCapacity
			l.atCapacity = true
			l.mu.Unlock()
			if fire && l.OnCapacity != nil {
				l.OnCapacity()
			}
			if l.OnDenied != nil {
				l.OnDenied(ip)
			}
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	allowed := v.limiter.AllowN(now, 1)
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	// hooks run without the lock, they may log or touch metrics
	l.mu.Unlock()

	if allowed {
		return true
	}
	if first && l.OnFirstDenied != nil {
		l.OnFirstDenied(ip)
	}
	if l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return false
}

// Len reports the number of tracked visitors.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
	if len(l.visitors) < l.maxVisitors {
		l.atCapacity = false
	}
}

// cleanup periodically evicts visitors that haven't been seen within the TTL.
// Runs every TTL/2 to avoid holding stale entries much longer than intended.
func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

// retryAfter is the time for one token to refill, in whole seconds.
func (l *IPLimiter) retryAfter() string {
	if l.perSecond <= 0 || l.perSecond == rate.Inf {
		return "60"
	}
	secs := int(math.Ceil(1 / float64(l.perSecond)))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Middleware returns middleware that rejects requests over the per-ip rate limit with 429.
// It must run after httpmw.ClientIP.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httpmw.ClientIPFromContext(r.Context())

		if !l.allow(ip) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Retry-After", l.retryAfter())
			w.WriteHeader(http.StatusTooManyRequests)
			// no detail about limits or remaining budget
			_, _ = w.Write([]byte(`{"message":"Too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
