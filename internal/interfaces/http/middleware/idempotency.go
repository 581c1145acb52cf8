package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/erp/fincalc/internal/infrastructure/logger"
	"github.com/erp/fincalc/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the request header carrying the client's key
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the key stored in the backing store
const maxIdempotencyKeyLength = 255

// IdempotencyConfig holds configuration for the Idempotency-Key guard
type IdempotencyConfig struct {
	Store  shared.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency rejects a replayed Idempotency-Key with 409 for as long as the
// key is remembered. Requests without the header pass through. A request that
// ends in an error response releases its key so the client can retry.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Store == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long",
			).WithRequestID(GetRequestID(c)))
			return
		}

		storeKey := idempotencyStoreKey(c, key)
		ctx := c.Request.Context()

		marked, err := cfg.Store.MarkProcessed(ctx, storeKey, cfg.TTL)
		if err != nil {
			// Store outage must not block writes
			logger.Enrich(ctx, log).Warn("Idempotency check failed, processing request",
				zap.String("idempotency_key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !marked {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(
				dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key was already processed",
			).WithRequestID(GetRequestID(c)))
			return
		}

		release := func() {
			// The request context may already be cancelled
			if err := cfg.Store.Release(context.WithoutCancel(ctx), storeKey); err != nil {
				logger.Enrich(ctx, log).Warn("Failed to release idempotency key",
					zap.String("idempotency_key", key),
					zap.Error(err),
				)
			}
		}
		defer func() {
			if r := recover(); r != nil {
				release()
				panic(r)
			}
		}()

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			release()
		}
	}
}

// idempotencyStoreKey scopes the client key to tenant and route
func idempotencyStoreKey(c *gin.Context, key string) string {
	tenant := "-"
	if id, ok := GetTenantUUID(c); ok {
		tenant = id.String()
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return "http:" + tenant + ":" + c.Request.Method + ":" + route + ":" + key
}
