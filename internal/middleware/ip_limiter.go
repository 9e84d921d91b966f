package middleware

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Defaults for the handshake limiter.
const (
	DefaultIPBurst = 5
	DefaultIPIdle  = time.Hour
)

// IPRateLimit manages handshake rate limiters per IP address. Entries
// expire after sitting idle, so no manual cleanup loop is needed.
type IPRateLimit struct {
	limiters *cache.Cache
	every    time.Duration
	burst    int
	idle     time.Duration
	mu       sync.Mutex
}

// NewIPRateLimit creates a limiter allowing one handshake per every with
// the given burst. A zero every disables limiting.
func NewIPRateLimit(every time.Duration, burst int, idle time.Duration) *IPRateLimit {
	if idle <= 0 {
		idle = DefaultIPIdle
	}
	return &IPRateLimit{
		limiters: cache.New(idle, idle/2),
		every:    every,
		burst:    burst,
		idle:     idle,
	}
}

// Allow: checks if an IP is allowed to open another connection
func (iprl *IPRateLimit) Allow(ip string) bool {
	if iprl.every <= 0 {
		return true
	}

	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	var limiter *rate.Limiter
	if cached, ok := iprl.limiters.Get(ip); ok {
		limiter = cached.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Every(iprl.every), iprl.burst)
	}
	// re-set on every use to slide the expiry
	iprl.limiters.Set(ip, limiter, iprl.idle)

	return limiter.Allow()
}

// Count returns the number of tracked IPs.
func (iprl *IPRateLimit) Count() int {
	return iprl.limiters.ItemCount()
}
