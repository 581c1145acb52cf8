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

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), BodyLimit(limit))
	r.POST("/bank-reconciliation/import/ofx", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "unreadable statement")
			return
		}
		c.String(http.StatusCreated, "imported")
	})
	r.GET("/bank-reconciliation", func(c *gin.Context) {
		c.String(http.StatusOK, "listed")
	})
	return r
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		path          string
		body          string
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{
			name:          "statement within the limit",
			method:        http.MethodPost,
			path:          "/bank-reconciliation/import/ofx",
			body:          "<OFX></OFX>",
			contentLength: 11,
			wantStatus:    http.StatusCreated,
		},
		{
			name:          "declared length over the limit is refused before the handler",
			method:        http.MethodPost,
			path:          "/bank-reconciliation/import/ofx",
			body:          strings.Repeat("x", 200),
			contentLength: 200,
			wantStatus:    http.StatusRequestEntityTooLarge,
			wantBody:      "ERR_PAYLOAD_TOO_LARGE",
		},
		{
			name:          "chunked body is cut off while reading",
			method:        http.MethodPost,
			path:          "/bank-reconciliation/import/ofx",
			body:          strings.Repeat("x", 200),
			contentLength: -1,
			wantStatus:    http.StatusBadRequest,
			wantBody:      "unreadable statement",
		},
		{
			name:       "bodiless GET passes",
			method:     http.MethodGet,
			path:       "/bank-reconciliation",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newBodyLimitRouter(64)
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.method == http.MethodPost {
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

func TestBodyLimit_EchoesRequestID(t *testing.T) {
	router := newBodyLimitRouter(8)
	req := httptest.NewRequest(http.MethodPost, "/bank-reconciliation/import/ofx", strings.NewReader(strings.Repeat("x", 32)))
	req.ContentLength = 32
	req.Header.Set(RequestIDHeader, "req-limit-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "req-limit-1")
}
