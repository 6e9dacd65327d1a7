package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/marketsync/internal/infrastructure/auth"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ClaimsKey holds the verified *auth.Claims in the gin context
	ClaimsKey    = "auth_claims"
	bearerPrefix = "Bearer "
)

// TokenVerifier checks a bearer token
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireScope admits requests carrying a valid bearer token that grants
// scope. Missing or bad tokens get 401, tokens without the scope get 403.
func RequireScope(verifier TokenVerifier, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			rejectRequest(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Bearer token required", nil)
			return
		}

		claims, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			code, message := dto.ErrCodeUnauthorized, "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code, message = dto.ErrCodeTokenExpired, "Token has expired"
			}
			rejectRequest(c, http.StatusUnauthorized, code, message, err)
			return
		}
		if !claims.HasScope(scope) {
			rejectRequest(c, http.StatusForbidden, dto.ErrCodeForbidden, "Token does not grant "+scope, auth.ErrMissingScope)
			return
		}

		c.Set(ClaimsKey, claims)
		ctx := c.Request.Context()
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("subject", claims.Subject)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetClaims returns the claims RequireScope stored, or nil
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func rejectRequest(c *gin.Context, status int, code, message string, err error) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("Request rejected",
		zap.String("path", c.FullPath()),
		zap.String("code", code),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, logger.GetRequestID(ctx)))
}
