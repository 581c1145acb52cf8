package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/fincalc/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTenantRouter(cfg TenantMiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(TenantMiddlewareWithConfig(cfg))
	handler := func(c *gin.Context) {
		id, ok := GetTenantUUID(c)
		if !ok {
			c.String(http.StatusOK, "none")
			return
		}
		c.String(http.StatusOK, id.String()+"|"+logger.GetTenantID(c.Request.Context()))
	}
	router.GET("/api/v1/assets", handler)
	router.GET("/health", handler)
	return router
}

func TestTenantMiddleware(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name       string
		cfg        TenantMiddlewareConfig
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "header tenant",
			cfg:        DefaultTenantConfig(),
			path:       "/api/v1/assets",
			header:     tenantID.String(),
			wantStatus: http.StatusOK,
			wantBody:   tenantID.String() + "|" + tenantID.String(),
		},
		{
			name:       "falls back to development tenant",
			cfg:        DefaultTenantConfig(),
			path:       "/api/v1/assets",
			wantStatus: http.StatusOK,
			wantBody:   DevelopmentTenantID.String() + "|" + DevelopmentTenantID.String(),
		},
		{
			name:       "malformed header",
			cfg:        DefaultTenantConfig(),
			path:       "/api/v1/assets",
			header:     "acme",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "nil uuid rejected",
			cfg:        DefaultTenantConfig(),
			path:       "/api/v1/assets",
			header:     uuid.Nil.String(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "required without header",
			cfg:        TenantMiddlewareConfig{Required: true},
			path:       "/api/v1/assets",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "skip path",
			cfg:        TenantMiddlewareConfig{Required: true, SkipPaths: []string{"/health"}},
			path:       "/health",
			wantStatus: http.StatusOK,
			wantBody:   "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTenantRouter(tt.cfg)
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(TenantHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
			if tt.wantStatus == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), "ERR_BAD_REQUEST")
			}
		})
	}
}
