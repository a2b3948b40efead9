package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders. HSTS is sent only on HTTPS
// requests; HSTSMaxAge defaults to 180 days.
type SecurityOptions struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// SecurityHeaders sets the hardening headers for a JSON-only API and exposes
// X-Request-ID, Idempotency-Replayed and ETag to browser clients.
//
// Cache-Control is left alone: chat history is revalidated with ETags.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge / time.Second)
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour) / time.Second)
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			exposeHeaders(h, requestIDHeader)
		}
		exposeHeaders(h, HeaderReplayed, "ETag")

		c.Next()
	}
}

// isHTTPS reports TLS on the connection or X-Forwarded-Proto: https from a
// proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// exposeHeaders appends names to Access-Control-Expose-Headers, skipping
// those already listed.
func exposeHeaders(h http.Header, names ...string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	listed := map[string]bool{}
	for _, n := range strings.Split(cur, ",") {
		if n = strings.TrimSpace(n); n != "" {
			listed[strings.ToLower(n)] = true
		}
	}
	for _, n := range names {
		if listed[strings.ToLower(n)] {
			continue
		}
		listed[strings.ToLower(n)] = true
		if cur == "" {
			cur = n
		} else {
			cur += ", " + n
		}
	}
	if cur != "" {
		h.Set(hdr, cur)
	}
}
