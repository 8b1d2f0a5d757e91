// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ============================================================================
// CORS Configuration and Middleware
// ============================================================================

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests.
	// "*" allows any origin without credentials; "*.example.com" matches
	// subdomains.
	AllowedOrigins []string

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string

	// AllowedHeaders is a list of allowed request headers.
	AllowedHeaders []string

	// MaxAge is the max age (in seconds) for preflight cache.
	MaxAge int
}

// DefaultCORSConfig returns a CORS configuration for the given origins.
func DefaultCORSConfig(origins []string) *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", SessionHeader},
		MaxAge:         86400, // 24 hours
	}
}

// matchOrigin reports whether origin is named explicitly or by a subdomain
// pattern, and whether a bare "*" is configured.
func (c *CORSConfig) matchOrigin(origin string) (explicit, wildcard bool) {
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" {
			wildcard = true
			continue
		}
		if origin == "" {
			continue
		}
		if allowed == origin {
			explicit = true
		}
		if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(origin, strings.TrimPrefix(allowed, "*")) {
			explicit = true
		}
	}
	return explicit, wildcard
}

// CORSMiddleware returns HTTP middleware that handles CORS headers and
// answers preflight OPTIONS requests.
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			explicit, wildcard := config.matchOrigin(origin)

			switch {
			case explicit:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			if explicit || wildcard {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Rate Limiter
// ============================================================================

// visitorTTL is how long an idle client's bucket is kept.
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	limit rate.Limit
	burst int

	lastCleanup time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per IP with
// the given burst. A perSecond of 0 or less disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = max(1, int(math.Ceil(perSecond)))
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed now.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.limit == rate.Inf {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > visitorTTL {
		rl.cleanup(now)
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// cleanup drops buckets idle longer than visitorTTL. Caller holds rl.mu.
func (rl *RateLimiter) cleanup(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, ip)
		}
	}
	rl.lastCleanup = now
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// RateLimitMiddleware rejects clients over their budget with 429.
func RateLimitMiddleware(limiter *RateLimiter, ips *IPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ips.ClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Request Logging Middleware
// ============================================================================

// RequestIDHeader carries the per-request id set by LoggingMiddleware.
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

// newResponseWriter creates a wrapped response writer.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code before writing it.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware logs every request with its status and duration and
// tags the response with a request id.
func LoggingMiddleware(logger *zap.Logger, ips *IPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > 64 {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			logger.Info("request",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Int64("bytes", wrapped.written),
				zap.String("client", ips.ClientIP(r)),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// ============================================================================
// Security Headers Middleware
// ============================================================================

// SecurityHeadersMiddleware sets these response headers:
//
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Content-Security-Policy for the bundled page
//   - Cache-Control: no-store
//   - Referrer-Policy: strict-origin-when-cross-origin
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")
			h.Set("Cache-Control", "no-store")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Recovery Middleware
// ============================================================================

// RecoveryMiddleware recovers from handler panics, logs the stack and
// answers 500.
func RecoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic recovered",
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("panic", fmt.Sprint(err)),
						zap.ByteString("stack", debug.Stack()),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Middleware Chain Helper
// ============================================================================

// Chain composes multiple middleware functions into a single middleware.
// Middlewares are applied in the order provided.
//
// Example:
//
//	chain := Chain(
//	    RecoveryMiddleware(logger),
//	    LoggingMiddleware(logger, ips),
//	    RateLimitMiddleware(limiter, ips),
//	)
//	http.Handle("/api", chain(handler))
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		// Apply middlewares in reverse order so they execute in order
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ============================================================================
// IP Extraction Helper
// ============================================================================

// DefaultTrustedProxies are the CIDR ranges allowed to set X-Forwarded-For
// and X-Real-IP when none are configured.
var DefaultTrustedProxies = []string{
	"127.0.0.1/32",   // IPv4 localhost
	"::1/128",        // IPv6 localhost
	"10.0.0.0/8",     // RFC 1918
	"172.16.0.0/12",  // RFC 1918
	"192.168.0.0/16", // RFC 1918
	"fc00::/7",       // IPv6 ULA
}

// IPResolver extracts client addresses, honouring forwarded headers only
// from trusted proxies.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses the trusted proxy ranges. An empty list uses
// DefaultTrustedProxies. A bare IP is treated as a single-host range.
func NewIPResolver(cidrs []string) (*IPResolver, error) {
	if len(cidrs) == 0 {
		cidrs = DefaultTrustedProxies
	}
	p := &IPResolver{trusted: make([]*net.IPNet, 0, len(cidrs))}
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if !strings.Contains(cidr, "/") {
			if ip := net.ParseIP(cidr); ip != nil && ip.To4() != nil {
				cidr += "/32"
			} else {
				cidr += "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		p.trusted = append(p.trusted, ipNet)
	}
	return p, nil
}

// isTrusted checks if the given IP address is in the trusted proxy list.
func (p *IPResolver) isTrusted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range p.trusted {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// getRemoteIP extracts the IP address from r.RemoteAddr.
// RemoteAddr is in the format "IP:port" or "[IPv6]:port".
func getRemoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return remoteAddr
	}
	return host
}

// ClientIP returns the client address for r.
//
// Process:
//  1. Extract the direct connection IP from RemoteAddr
//  2. If the connection is from a trusted proxy, check forwarded headers:
//     a. X-Forwarded-For (first valid IP in the list)
//     b. X-Real-IP
//  3. Fall back to the connection IP
func (p *IPResolver) ClientIP(r *http.Request) string {
	connIP := getRemoteIP(r.RemoteAddr)
	if !p.isTrusted(connIP) {
		return connIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return connIP
}
