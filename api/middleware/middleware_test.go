/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shadowpay/shadowpay/config"
	"github.com/stretchr/testify/assert"
)

type stubParser map[string]string

func (s stubParser) Parse(token string) (string, error) {
	if w, ok := s[token]; ok {
		return w, nil
	}
	return "", errors.New("bad token")
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSharedSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		secret   string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "disabled", secret: "", path: "/deposit", wantCode: http.StatusOK},
		{name: "missing", secret: "s3cret", path: "/deposit", wantCode: http.StatusUnauthorized, wantBody: "Missing secret key"},
		{name: "wrong", secret: "s3cret", path: "/deposit", header: "nope", wantCode: http.StatusUnauthorized, wantBody: "Invalid secret key"},
		{name: "valid", secret: "s3cret", path: "/deposit", header: "s3cret", wantCode: http.StatusOK},
		{name: "skipped path", secret: "s3cret", path: "/health", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(SharedSecret("X-Relayer-Auth", tt.secret, "/health"))
			r.GET("/deposit", func(c *gin.Context) { c.Status(http.StatusOK) })
			r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-Relayer-Auth", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestBearerAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BearerAuth(stubParser{"good": "wallet-1"}))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, Wallet(c)) })

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "no header", wantCode: http.StatusUnauthorized, wantBody: "Missing token"},
		{name: "wrong scheme", header: "Basic good", wantCode: http.StatusUnauthorized, wantBody: "Missing token"},
		{name: "invalid", header: "Bearer bad", wantCode: http.StatusUnauthorized, wantBody: "Invalid token"},
		{name: "valid", header: "Bearer good", wantCode: http.StatusOK, wantBody: "wallet-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestPerMinuteLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/pay", PerMinuteLimit(&config.Configuration{}, 2, "Too many payment attempts"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		codes = append(codes, serve(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(&config.Configuration{}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://pay.example"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://pay.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/links/:id", func(c *gin.Context) { panic("nil link") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/links/abc", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"nil link","code":"PANIC"}`, w.Body.String())
}
