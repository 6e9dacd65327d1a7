package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/marketsync/internal/infrastructure/auth"
	"github.com/erp/marketsync/internal/infrastructure/config"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequireScope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenService(config.AuthConfig{
		Secret:   "test-secret-key-at-least-32-chars",
		Issuer:   "marketsync",
		TokenTTL: time.Hour,
	})
	expired := auth.NewTokenService(config.AuthConfig{
		Secret:   "test-secret-key-at-least-32-chars",
		Issuer:   "marketsync",
		TokenTTL: -time.Minute,
	})

	engine := gin.New()
	engine.Use(logger.GinMiddleware(zap.NewNop()))
	engine.PUT("/commissions/7", RequireScope(tokens, auth.ScopeCommissionsWrite), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Subject)
	})

	writer, err := tokens.Issue("ops", auth.ScopeCommissionsWrite)
	require.NoError(t, err)
	reader, err := tokens.Issue("viewer")
	require.NoError(t, err)
	stale, err := expired.Issue("ops", auth.ScopeCommissionsWrite)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no header", "", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"basic auth", "Basic b3BzOnNlY3JldA==", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"tampered", "Bearer " + writer + "x", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"expired", "Bearer " + stale, http.StatusUnauthorized, dto.ErrCodeTokenExpired},
		{"missing scope", "Bearer " + reader, http.StatusForbidden, dto.ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/commissions/7", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}

	t.Run("granted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/commissions/7", nil)
		req.Header.Set("Authorization", "Bearer "+writer)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops", w.Body.String())
	})
}
