package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

// NewRateLimiter allows perSecond requests per IP with the given burst.
// perSecond <= 0 disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Enabled reports whether requests are limited at all
func (rl *RateLimiter) Enabled() bool {
	return rl.limit > 0
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			log.Warn("rate limit exceeded", zap.String("ip", ip))
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses.
// The dashboard uses inline styles and, with live reload, an inline script
// that opens a websocket back to this host.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// IPAllowList restricts access to configured addresses and CIDR ranges
type IPAllowList struct {
	ips  map[string]bool
	nets []*net.IPNet
}

// NewIPAllowList accepts plain addresses ("10.0.0.5") and CIDRs ("10.0.0.0/24").
// Entries that parse as neither are ignored and returned.
func NewIPAllowList(entries []string) (*IPAllowList, []string) {
	al := &IPAllowList{ips: make(map[string]bool)}
	var invalid []string
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, ipnet, err := net.ParseCIDR(entry); err == nil {
			al.nets = append(al.nets, ipnet)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			al.ips[ip.String()] = true
			continue
		}
		invalid = append(invalid, entry)
	}
	return al, invalid
}

// Empty reports whether no entries were configured, which allows everyone
func (al *IPAllowList) Empty() bool {
	return len(al.ips) == 0 && len(al.nets) == 0
}

// IsAllowed checks an address. Loopback is always allowed.
func (al *IPAllowList) IsAllowed(addr string) bool {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return al.Empty()
	}
	if ip.IsLoopback() || al.Empty() {
		return true
	}
	if al.ips[ip.String()] {
		return true
	}
	for _, n := range al.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// IPAllowListMiddleware rejects clients outside the allow-list with 403
func IPAllowListMiddleware(al *IPAllowList, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !al.IsAllowed(ip) {
			log.Warn("access denied", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
