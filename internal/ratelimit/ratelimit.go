package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohammadalshikh/orbit/internal/httpmw"
)

// visitor tracks one client's bucket and last activity.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is set after the first denial; it resets on eviction
	logged bool
}

// IPLimiter holds per-client limiters keyed by the resolved client address.
type IPLimiter struct {
	name string

	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time

	// OnFirstDenied runs once per visitor when it is first limited.
	OnFirstDenied func(ip string)

	// OnDenied runs on every denied request.
	OnDenied func(ip string)
}

type Option func(*IPLimiter)

// WithName labels the limiter in callbacks and logs, e.g. "global" or "auth".
func WithName(name string) Option {
	return func(l *IPLimiter) { l.name = name }
}

// WithRate sets the refill rate and bucket size. WithRate(10, 50) allows 50
// requests at once and then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle client stays tracked.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithOnFirstDenied sets the once-per-visitor denial callback, used for logging.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnFirstDenied = fn }
}

// WithOnDenied sets the per-request denial callback, used for counters.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnDenied = fn }
}

func withClock(now func() time.Time) Option {
	return func(l *IPLimiter) { l.now = now }
}

// New creates an IPLimiter and starts its eviction loop, which stops when
// ctx is cancelled.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		name:      "global",
		visitors:  make(map[string]*visitor),
		perSecond: 10,
		burst:     30,
		ttl:       5 * time.Minute,
		now:       time.Now,
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

// Name returns the limiter label.
func (l *IPLimiter) Name() string { return l.name }

// Len reports how many clients are tracked.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// allow reports whether ip may proceed, creating its bucket on first use.
func (l *IPLimiter) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	allowed := v.limiter.AllowN(now, 1)
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	// hooks run unlocked
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

// evict drops visitors idle for longer than the ttl and returns how many.
func (l *IPLimiter) evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

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

// retryAfter is the whole seconds until one token refills.
func (l *IPLimiter) retryAfter() string {
	if l.perSecond <= 0 || math.IsInf(float64(l.perSecond), 1) {
		return "1"
	}
	secs := int(math.Ceil(1 / float64(l.perSecond)))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Middleware answers 429 for clients over their limit.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httpmw.ClientIPFromContext(r.Context())

		if !l.allow(ip) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", l.retryAfter())
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
