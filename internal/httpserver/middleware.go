package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
)

type ctxKey string

const (
	identityCtxKey ctxKey = "identity"
	tokenCtxKey    ctxKey = "token"
)

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Error("panic recovered", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path))
		respondCode(c, http.StatusInternalServerError, CodeInternal, "internal server error")
	})
}

// corsMiddleware allows the listed origins. Entries prefixed with "~" are
// regular expressions matched against the full origin.
func corsMiddleware(origins []string) (gin.HandlerFunc, error) {
	exact := map[string]bool{}
	var patterns []*regexp.Regexp
	for _, o := range origins {
		if strings.HasPrefix(o, "~") {
			re, err := regexp.Compile(strings.TrimPrefix(o, "~"))
			if err != nil {
				return nil, fmt.Errorf("cors origin pattern %q: %w", o, err)
			}
			patterns = append(patterns, re)
			continue
		}
		exact[strings.TrimRight(o, "/")] = true
	}

	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if exact[origin] {
				return true
			}
			for _, re := range patterns {
				if re.MatchString(origin) {
					return true
				}
			}
			return false
		},
	}
	return cors.New(cfg), nil
}

// Verifier turns a bearer token into a caller identity.
type Verifier interface {
	Verify(token string) (domain.Identity, error)
}

// Revocations reports and records signed-out tokens.
type Revocations interface {
	Revoke(ctx context.Context, raw string, id domain.Identity) error
	Revoked(ctx context.Context, raw string) (bool, error)
}

func authMiddleware(v Verifier, rev Revocations, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondCode(c, http.StatusUnauthorized, CodeNotAuthenticated, "access token required")
			return
		}
		id, err := v.Verify(token)
		if err != nil {
			respondCode(c, http.StatusUnauthorized, CodeNotAuthenticated, "invalid or expired token")
			return
		}
		if rev != nil {
			revoked, err := rev.Revoked(c.Request.Context(), token)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			if revoked {
				respondCode(c, http.StatusUnauthorized, CodeNotAuthenticated, "token has been revoked")
				return
			}
		}
		c.Set(string(identityCtxKey), id)
		c.Set(string(tokenCtxKey), token)
		c.Next()
	}
}

func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityFrom(c)
		if !ok {
			respondCode(c, http.StatusUnauthorized, CodeNotAuthenticated, "authentication required")
			return
		}
		if !id.IsAdmin() {
			respondCode(c, http.StatusForbidden, CodeForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(string(identityCtxKey))
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok && id.UserID != ""
}
