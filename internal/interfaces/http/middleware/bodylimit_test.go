package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	const limit = 64

	router := gin.New()
	router.Use(BodyLimit(limit))
	router.PUT("/forms/:id/fields/:name", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "read failed")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	router.GET("/forms/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		name          string
		method        string
		body          string
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{name: "field edit within limit", method: http.MethodPut, body: `{"value":"ABCDE1234F"}`, contentLength: 22, wantStatus: http.StatusOK},
		{name: "declared length over limit", method: http.MethodPut, body: strings.Repeat("x", 128), contentLength: 128, wantStatus: http.StatusRequestEntityTooLarge, wantBody: "REQUEST_TOO_LARGE"},
		{name: "chunked body cut off while reading", method: http.MethodPut, body: strings.Repeat("x", 128), contentLength: -1, wantStatus: http.StatusBadRequest},
		{name: "draft read without body", method: http.MethodGet, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/forms/f1"
			var body io.Reader
			if tt.method == http.MethodPut {
				path += "/fields/tax_id"
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, path, body)
			if body != nil {
				req.ContentLength = tt.contentLength
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}
