package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/fincalc/internal/infrastructure/logger"
	"github.com/erp/fincalc/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tenant context keys
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// DevelopmentTenantID is used when no tenant header is sent and the
// middleware is not configured to require one
var DevelopmentTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// SkipPaths are paths that don't require tenant context (e.g., health check)
	SkipPaths []string
	// Required rejects requests without X-Tenant-ID
	Required bool
	// DefaultTenantID is used when the header is absent and Required is false
	DefaultTenantID uuid.UUID
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths:       []string{"/health", "/api/v1/health"},
		Required:        false,
		DefaultTenantID: DevelopmentTenantID,
	}
}

// TenantMiddleware extracts the tenant from X-Tenant-ID
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		var tenantID uuid.UUID
		header := strings.TrimSpace(c.GetHeader(TenantHeaderKey))
		switch {
		case header != "":
			if len(header) > MaxTenantIDLength {
				respondBadTenant(c, "Invalid tenant ID format")
				return
			}
			parsed, err := uuid.Parse(header)
			if err != nil || parsed == uuid.Nil {
				respondBadTenant(c, "Invalid tenant ID format")
				return
			}
			tenantID = parsed
		case cfg.Required || cfg.DefaultTenantID == uuid.Nil:
			respondBadTenant(c, "Tenant identification required")
			return
		default:
			tenantID = cfg.DefaultTenantID
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))

		if cfg.Logger != nil {
			cfg.Logger.Debug("Tenant identified",
				zap.String("tenant_id", tenantID.String()),
				zap.Bool("from_header", header != ""),
			)
		}
		c.Next()
	}
}

func respondBadTenant(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewErrorResponse(dto.ErrCodeBadRequest, message).WithRequestID(GetRequestID(c)))
}

// GetTenantUUID retrieves the tenant ID set by TenantMiddleware
func GetTenantUUID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(TenantIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
