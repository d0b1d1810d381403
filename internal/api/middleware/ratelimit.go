package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hugh/gymhub/internal/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateResult is the outcome of one rate limit check.
type RateResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateStore holds rate limit counters. Implementations are injected so
// tests and single-node deployments need no Redis.
type RateStore interface {
	Allow(ctx context.Context, key string) (RateResult, error)
}

// MemoryStore is a per-key token bucket held in process memory.
type MemoryStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewMemoryStore allows requests per window with a burst of requests.
func NewMemoryStore(requests int, window time.Duration) *MemoryStore {
	if requests <= 0 {
		requests = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryStore{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
	}
}

func (m *MemoryStore) getLimiter(key string) *rate.Limiter {
	m.mu.RLock()
	limiter, exists := m.limiters[key]
	m.mu.RUnlock()

	if exists {
		return limiter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = m.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(m.rate, m.burst)
	m.limiters[key] = limiter
	return limiter
}

func (m *MemoryStore) Allow(ctx context.Context, key string) (RateResult, error) {
	limiter := m.getLimiter(key)

	now := time.Now()
	res := limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
		return RateResult{Allowed: false, RetryAfter: delay}, nil
	}

	remaining := int64(limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{Allowed: true, Remaining: remaining}, nil
}

// Cleanup drops all limiters once the map grows past max keys.
func (m *MemoryStore) Cleanup(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.limiters) > max {
		m.limiters = make(map[string]*rate.Limiter)
	}
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisStore is a token bucket shared by every server through Redis.
type RedisStore struct {
	rdb      redis.Scripter
	prefix   string
	capacity int
	window   time.Duration
}

func NewRedisStore(rdb redis.Scripter, prefix string, requests int, window time.Duration) *RedisStore {
	if requests <= 0 {
		requests = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "gymhub:rl"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, capacity: requests, window: window}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (RateResult, error) {
	interval := s.window / time.Duration(s.capacity)
	if interval <= 0 {
		interval = time.Millisecond
	}

	vals, err := tokenBucketScript.Run(ctx, s.rdb, []string{s.prefix + ":" + key},
		time.Now().UnixMilli(),
		s.capacity,
		interval.Milliseconds(),
		int64(2*s.window/time.Second)+1,
	).Int64Slice()
	if err != nil {
		return RateResult{}, fmt.Errorf("running rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return RateResult{}, fmt.Errorf("unexpected rate limit result: %v", vals)
	}

	return RateResult{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// RateLimit limits requests per client IP within scope. Store failures fail
// open. A nil ips keys on the direct peer only.
func RateLimit(store RateStore, limit int, scope string, ips *ClientIP, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + ips.From(r)

			res, err := store.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limit store unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				metrics.RateLimited.WithLabelValues(scope).Inc()
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the address a request originated from. Forwarding
// headers are honoured only when the direct peer is a trusted proxy, so a
// client talking to the server directly cannot choose its own key.
type ClientIP struct {
	trusted []*net.IPNet
}

// NewClientIP parses the trusted proxy list. Entries are CIDRs or bare
// addresses.
func NewClientIP(proxies []string) (*ClientIP, error) {
	c := &ClientIP{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", p)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			c.trusted = append(c.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		c.trusted = append(c.trusted, n)
	}
	return c, nil
}

func (c *ClientIP) isTrusted(addr string) bool {
	if c == nil {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// From returns the client address of r. Behind trusted proxies it walks
// X-Forwarded-For from the right and stops at the first untrusted hop.
func (c *ClientIP) From(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !c.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !c.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}
