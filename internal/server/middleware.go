package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/irensaltali/fax-app-backend/internal/identity/domain"
	"github.com/irensaltali/fax-app-backend/internal/principal"
	"go.uber.org/zap"
)

const headerUserID = "X-User-ID"

// PrincipalContext lifts the already-authenticated caller identity from
// the gateway-set header into the request context. Token validation
// happens upstream; an empty header means an anonymous caller.
func (s *Server) PrincipalContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(headerUserID))
		if userID != "" {
			ctx := principal.WithPrincipal(c.Request.Context(), principal.Principal{
				UserID:    userID,
				Anonymous: identitydomain.IsAnonymousID(userID),
			})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}
		if c.Writer.Status() >= 500 {
			log.Error("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
