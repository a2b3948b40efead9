package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey is the request header that carries an idempotency key.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderReplayed marks a response served from a stored exchange.
	HeaderReplayed = "Idempotency-Replayed"
)

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyRateBypass = "rate.bypass" // bool: a stored reply exists
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, ^[A-Za-z0-9._~\-:]+$ is used.
	Pattern *regexp.Regexp
	// Scope derives the namespace a key belongs to from the request. An empty
	// result skips the lookup. Nil disables lookups.
	Scope func(c *gin.Context) string
}

// IdempotencyLookup reports whether a still-valid result exists for key
// within scope at now. Errors do not block the request.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header (if present),
// stashes it in the Gin context, and checks for a prior completed request via
// lookup.
//
// Behavior:
//   - If header is absent: the middleware is a no-op.
//   - If header fails validation: responds 400 with the error envelope.
//   - If lookup finds a stored reply: sets the rate-bypass flag.
//
// This middleware does not return cached payloads; handlers serve replays.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "Invalid Idempotency-Key")
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil && opts.Scope != nil {
			if scope := opts.Scope(c); scope != "" {
				exists, err := lookup(c.Request.Context(), scope, key, time.Now().UTC())
				if err != nil {
					LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
				}
				if exists {
					c.Set(ctxKeyRateBypass, true)
				}
			}
		}

		c.Next()
	}
}
