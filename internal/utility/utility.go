package utility

import (
	"fmt"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// GetLogger returns the request-scoped logger set by the logging middleware,
// or the global logger when the request did not pass through it.
func GetLogger(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get("logger").(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	l := log.Logger
	return &l
}

// DefaultTrackedClients bounds how many client IPs keep a limiter in memory.
const DefaultTrackedClients = 4096

// IPRateLimiter hands out one token bucket per client IP. Buckets live in an
// LRU, so the least recently seen clients are forgotten once maxClients is
// reached and start again with a full bucket.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter allows perMinute events per IP, with bursts of the same
// size, remembering at most maxClients IPs. Non-positive arguments select
// 1 per minute and DefaultTrackedClients.
func NewIPRateLimiter(perMinute, maxClients int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if maxClients <= 0 {
		maxClients = DefaultTrackedClients
	}

	// lru.New only fails for a non-positive size.
	limiters, _ := lru.New[string, *rate.Limiter](maxClients)

	return &IPRateLimiter{
		limiters: limiters,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// Allow reports whether ip may perform one more event now.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(ip, limiter)
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Tracked returns the number of IPs currently holding a limiter.
func (l *IPRateLimiter) Tracked() int {
	return l.limiters.Len()
}

// IPExtractor returns how echo resolves the client IP. Forwarding headers are
// only honoured when the direct peer is one of trustedProxies (CIDRs);
// without any, the peer address is used as is.
func IPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy range %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
