package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"printer-docs-backend/internal/metrics"
)

// idleLimiterTTL is how long a client's limiter is kept after its last request.
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter stores a rate limiter for each client IP address.
type IPRateLimiter struct {
	ips       map[string]*clientLimiter
	mu        sync.Mutex
	r         rate.Limit
	b         int
	lastSweep time.Time
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:       make(map[string]*clientLimiter),
		r:         r,
		b:         b,
		lastSweep: time.Now(),
	}
}

// GetLimiter returns the rate limiter for an IP address, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	now := time.Now()
	i.mu.Lock()
	defer i.mu.Unlock()

	if now.Sub(i.lastSweep) > idleLimiterTTL {
		for k, cl := range i.ips {
			if now.Sub(cl.lastSeen) > idleLimiterTTL {
				delete(i.ips, k)
			}
		}
		i.lastSweep = now
	}

	cl, exists := i.ips[ip]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Len returns the number of tracked clients.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(limiter *IPRateLimiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			m.RecordRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
