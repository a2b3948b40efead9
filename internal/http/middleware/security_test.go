package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// historyRouter serves a stand-in chat history route that tags its response
// with an ETag, behind RequestID and SecurityHeaders.
func historyRouter(opt SecurityOptions, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	r.GET("/chat/:character1/:character2/messages", func(c *gin.Context) {
		c.Header("ETag", `W/"chat:1:1"`)
		c.JSON(http.StatusOK, gin.H{"messages": []string{}})
	})
	return r
}

func getHistory(r *gin.Engine, mutate func(*http.Request)) http.Header {
	req := httptest.NewRequest(http.MethodGet, "/chat/Alice/Bob/messages", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_HistoryResponse(t *testing.T) {
	h := getHistory(historyRouter(SecurityOptions{}, RequestID()), nil)

	want := map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"X-Frame-Options":                   "DENY",
		"Referrer-Policy":                   "no-referrer",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Access-Control-Expose-Headers":     "X-Request-ID, Idempotency-Replayed, ETag",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q; want %q", k, got, v)
		}
	}
	if h.Get("Permissions-Policy") == "" {
		t.Errorf("Permissions-Policy missing")
	}
	// history is revalidated with ETags, so nothing may forbid caching
	if h.Get("Cache-Control") != "" || h.Get("Pragma") != "" {
		t.Errorf("unexpected cache headers: %v", h)
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Errorf("HSTS sent while disabled")
	}
}

func TestSecurityHeaders_ExposeWithoutRequestID(t *testing.T) {
	h := getHistory(historyRouter(SecurityOptions{}), nil)
	if got := h.Get("Access-Control-Expose-Headers"); got != "Idempotency-Replayed, ETag" {
		t.Fatalf("expose = %q", got)
	}
}

func TestSecurityHeaders_MergesCORSExposeList(t *testing.T) {
	cors := func(c *gin.Context) {
		c.Header("Access-Control-Expose-Headers", "etag, Content-Length")
		c.Next()
	}
	h := getHistory(historyRouter(SecurityOptions{}, RequestID(), cors), nil)
	if got := h.Get("Access-Control-Expose-Headers"); got != "etag, Content-Length, X-Request-ID, Idempotency-Replayed" {
		t.Fatalf("expose = %q", got)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	cases := []struct {
		name   string
		opt    SecurityOptions
		mutate func(*http.Request)
		want   string
	}{
		{
			name:   "plain http",
			opt:    SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour},
			mutate: nil,
			want:   "",
		},
		{
			name:   "tls with configured age",
			opt:    SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour},
			mutate: func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
			want:   "max-age=86400; includeSubDomains; preload",
		},
		{
			name:   "proxy https with default age",
			opt:    SecurityOptions{EnableHSTS: true},
			mutate: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") },
			want:   "max-age=15552000; includeSubDomains; preload",
		},
		{
			name:   "disabled over tls",
			opt:    SecurityOptions{HSTSMaxAge: time.Hour},
			mutate: func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
			want:   "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := getHistory(historyRouter(tc.opt), tc.mutate)
			if got := h.Get("Strict-Transport-Security"); got != tc.want {
				t.Fatalf("HSTS = %q; want %q", got, tc.want)
			}
		})
	}
}

func Test_exposeHeaders(t *testing.T) {
	h := http.Header{}
	exposeHeaders(h)
	if _, ok := h["Access-Control-Expose-Headers"]; ok {
		t.Fatalf("no names must not set the header")
	}
	exposeHeaders(h, "ETag")
	exposeHeaders(h, "etag", "X-Request-ID", "X-Request-ID")
	if got := h.Get("Access-Control-Expose-Headers"); got != "ETag, X-Request-ID" {
		t.Fatalf("got %q", got)
	}
}
