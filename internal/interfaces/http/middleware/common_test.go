package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveWith(mw gin.HandlerFunc, method string, header map[string]string) *httptest.ResponseRecorder {
	router := gin.New()
	router.Use(mw)
	router.GET("/api/v1/customers", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(method, "/api/v1/customers", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSWithConfig(t *testing.T) {
	desk := CORSConfig{
		AllowOrigins:     []string{"https://desk.example.com", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "PUT"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	wildcard := desk
	wildcard.AllowOrigins = []string{"*"}

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   string
		wantHeaders bool
	}{
		{name: "default rejects cross-origin", cfg: DefaultCORSConfig(), method: "GET", origin: "http://evil.example", wantStatus: http.StatusOK},
		{name: "default allows same-origin", cfg: DefaultCORSConfig(), method: "GET", wantStatus: http.StatusOK},
		{name: "default preflight", cfg: DefaultCORSConfig(), method: "OPTIONS", origin: "http://evil.example", wantStatus: http.StatusNoContent},
		{name: "listed origin", cfg: desk, method: "GET", origin: "http://localhost:3000", wantStatus: http.StatusOK, wantOrigin: "http://localhost:3000", wantCreds: "true", wantHeaders: true},
		{name: "unlisted origin", cfg: desk, method: "GET", origin: "http://evil.example", wantStatus: http.StatusOK},
		{name: "preflight listed origin", cfg: desk, method: "OPTIONS", origin: "https://desk.example.com", wantStatus: http.StatusNoContent, wantOrigin: "https://desk.example.com", wantCreds: "true", wantHeaders: true},
		{name: "preflight unlisted origin", cfg: desk, method: "OPTIONS", origin: "http://evil.example", wantStatus: http.StatusNoContent},
		{name: "wildcard never sends credentials", cfg: wildcard, method: "GET", origin: "http://any.example", wantStatus: http.StatusOK, wantOrigin: "*", wantHeaders: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.origin != "" {
				header["Origin"] = tt.origin
			}
			w := serveWith(CORSWithConfig(tt.cfg), tt.method, header)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.wantHeaders {
				assert.Equal(t, "GET, PUT", w.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
				assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "PUT")
	assert.Contains(t, cfg.AllowHeaders, RequestIDHeader)
	assert.False(t, cfg.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "generates when missing"},
		{name: "keeps client id", header: "req-123", keep: true},
		{name: "replaces oversized id", header: strings.Repeat("x", MaxRequestIDLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			id := w.Body.String()
			assert.Equal(t, id, w.Header().Get(RequestIDHeader))
			if tt.keep {
				assert.Equal(t, tt.header, id)
				return
			}
			_, err := uuid.Parse(id)
			require.NoError(t, err)
		})
	}
}

func TestSecure(t *testing.T) {
	w := serveWith(Secure(), http.MethodGet, nil)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecureWithConfig(t *testing.T) {
	t.Run("HSTS with subdomains", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.HSTSEnabled = true

		w := serveWith(SecureWithConfig(cfg), http.MethodGet, nil)

		assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("HSTS without subdomains", func(t *testing.T) {
		w := serveWith(SecureWithConfig(SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 60}), http.MethodGet, nil)

		assert.Equal(t, "max-age=60", w.Header().Get("Strict-Transport-Security"))
		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})
}
