package daemon

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"captionjob/internal/config"
)

const limiterIdleTTL = 10 * time.Minute

// clientLimiter hands out one token bucket per client address.
type clientLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*limiterEntry
	swept   time.Time
	now     func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientLimiter returns nil when perMinute is not positive, which
// disables limiting.
func newClientLimiter(perMinute, burst int) *clientLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		clients: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *clientLimiter) allow(client string) bool {
	if l == nil {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > limiterIdleTTL {
		for key, entry := range l.clients {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.clients, key)
			}
		}
		l.swept = now
	}
	entry, ok := l.clients[client]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// clientResolver picks the address a request is rate limited under.
// Forwarding headers are honoured only when the connecting peer is a
// trusted proxy.
type clientResolver struct {
	trustAll bool
	proxies  []netip.Prefix
}

func newClientResolver(cfg config.Server) *clientResolver {
	resolver := &clientResolver{trustAll: cfg.TrustProxyHeaders}
	for _, entry := range cfg.TrustedProxies {
		if prefix, err := config.ParseProxyPrefix(entry); err == nil {
			resolver.proxies = append(resolver.proxies, prefix)
		}
	}
	return resolver
}

func (c *clientResolver) trusted(addr netip.Addr) bool {
	if c.trustAll {
		return true
	}
	addr = addr.Unmap()
	for _, prefix := range c.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address, or the nearest untrusted hop from the
// forwarding headers when the peer is a trusted proxy.
func (c *clientResolver) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	peerAddr, err := netip.ParseAddr(peer)
	if err != nil || !c.trusted(peerAddr) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		var hops []netip.Addr
		for _, part := range strings.Split(xff, ",") {
			addr, err := netip.ParseAddr(strings.TrimSpace(part))
			if err != nil {
				return peer
			}
			hops = append(hops, addr)
		}
		for i := len(hops) - 1; i >= 0; i-- {
			if !c.trusted(hops[i]) {
				return hops[i].String()
			}
		}
		if len(hops) > 0 {
			return hops[0].String()
		}
	}
	if rip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return rip.String()
	}
	return peer
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil && host != "" {
		return host
	}
	return remoteAddr
}
