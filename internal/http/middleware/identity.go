package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/coursebridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

type IdentityConfig struct {
	// Secret is the HS256 key shared with the identity provider. Empty
	// disables verification and every request is anonymous.
	Secret   string
	Issuer   string
	Required bool
}

// IdentityMiddleware verifies an IdP-issued bearer token and records its
// subject as the asker. Sessions and accounts live with the identity provider.
type IdentityMiddleware struct {
	cfg IdentityConfig
	log *logger.Logger
}

func NewIdentityMiddleware(log *logger.Logger, cfg IdentityConfig) *IdentityMiddleware {
	return &IdentityMiddleware{cfg: cfg, log: log.With("Middleware", "IdentityMiddleware")}
}

func (im *IdentityMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if im.cfg.Required {
				abortUnauthorized(c, "missing or invalid token")
				return
			}
			c.Next()
			return
		}
		if im.cfg.Secret == "" {
			c.Next()
			return
		}

		subject, err := im.verify(token)
		if err != nil {
			im.log.Debug("Rejected bearer token", "error", err)
			abortUnauthorized(c, "invalid token")
			return
		}
		ctx := c.Request.Context()
		td := ctxutil.GetTraceData(ctx)
		if td == nil {
			td = &ctxutil.TraceData{}
			ctx = ctxutil.WithTraceData(ctx, td)
		}
		td.AskerID = subject
		c.Request = c.Request.WithContext(ctx)
		c.Set("asker_id", subject)
		c.Next()
	}
}

func (im *IdentityMiddleware) verify(token string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if im.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(im.cfg.Issuer))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(im.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return "", errors.New("token not valid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": msg, "code": "unauthorized"},
	})
}
