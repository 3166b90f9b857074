package httpapi

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig sizes the buckets in requests per minute and burst.
type RateLimitConfig struct {
	IPPerMinute     int
	IPBurst         int
	TenantPerMinute int
	TenantBurst     int
	// Login buckets apply to POST /auth/login per client IP, on top of the
	// IP bucket.
	LoginPerMinute int
	LoginBurst     int
	// TrustedProxies are the CIDRs whose X-Forwarded-For is believed.
	// Requests from anywhere else are keyed on their socket address.
	TrustedProxies []netip.Prefix
}

// RateLimiter throttles per client IP, per X-Tenant-ID and, more tightly,
// sign-in attempts per client IP.
type RateLimiter struct {
	ip      *buckets
	tenant  *buckets
	login   *buckets
	proxies []netip.Prefix
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		ip:      newBuckets(cfg.IPPerMinute, cfg.IPBurst, 120, 30),
		tenant:  newBuckets(cfg.TenantPerMinute, cfg.TenantBurst, 600, 120),
		login:   newBuckets(cfg.LoginPerMinute, cfg.LoginBurst, 10, 5),
		proxies: cfg.TrustedProxies,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := l.clientIP(r)
		if wait, ok := l.ip.take(ip); !ok {
			tooManyRequests(w, wait)
			return
		}
		if r.Method == http.MethodPost && r.URL.Path == "/auth/login" {
			if wait, ok := l.login.take(ip); !ok {
				tooManyRequests(w, wait)
				return
			}
		}
		if tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-ID")); tenantID != "" {
			if wait, ok := l.tenant.take(tenantID); !ok {
				tooManyRequests(w, wait)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep drops buckets idle for longer than idle, which by then have
// refilled completely anyway.
func (l *RateLimiter) Sweep(idle time.Duration) {
	for _, b := range []*buckets{l.ip, l.tenant, l.login} {
		b.sweep(idle)
	}
}

func tooManyRequests(w http.ResponseWriter, wait time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
}

// buckets is a keyed token bucket.
type buckets struct {
	mu      sync.Mutex
	perSec  float64
	burst   float64
	entries map[string]*bucketState
	now     func() time.Time
}

type bucketState struct {
	tokens float64
	seen   time.Time
}

func newBuckets(perMinute, burst, defaultPerMinute, defaultBurst int) *buckets {
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &buckets{
		perSec:  float64(perMinute) / 60,
		burst:   float64(burst),
		entries: make(map[string]*bucketState),
		now:     time.Now,
	}
}

// take spends one token for key. When none is left it reports how long
// until the next one.
func (b *buckets) take(key string) (time.Duration, bool) {
	if key == "" {
		return 0, true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	st, ok := b.entries[key]
	if !ok {
		st = &bucketState{tokens: b.burst, seen: now}
		b.entries[key] = st
	}
	st.tokens = min(b.burst, st.tokens+now.Sub(st.seen).Seconds()*b.perSec)
	st.seen = now
	if st.tokens < 1 {
		missing := 1 - st.tokens
		return time.Duration(missing / b.perSec * float64(time.Second)), false
	}
	st.tokens--
	return 0, true
}

func (b *buckets) sweep(idle time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := b.now().Add(-idle)
	for key, st := range b.entries {
		if st.seen.Before(cutoff) {
			delete(b.entries, key)
		}
	}
}

// clientIP is the socket peer, unless that peer is a trusted proxy: then
// X-Forwarded-For is walked from the right and the first hop that is not a
// trusted proxy wins.
func (l *RateLimiter) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !l.trusted(peer) {
		return peer
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !l.trusted(hop) {
			return hop
		}
	}
	return peer
}

func (l *RateLimiter) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range l.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ParseTrustedProxies reads a comma-separated list of CIDRs or bare
// addresses.
func ParseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "/") {
			addr, err := netip.ParseAddr(part)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", part, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", part, err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}
