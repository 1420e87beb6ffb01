package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursebridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func identityRouter(cfg IdentityConfig, seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.Use(NewIdentityMiddleware(logger.Nop(), cfg).Identify())
	r.GET("/x", func(c *gin.Context) {
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			*seen = td.AskerID
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdentityAcceptsValidToken(t *testing.T) {
	var seen string
	r := identityRouter(IdentityConfig{Secret: testSecret}, &seen)
	tok := sign(t, jwt.RegisteredClaims{Subject: "student-7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})

	rec := get(r, tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "student-7", seen)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestIdentityRejectsExpiredOrForeignToken(t *testing.T) {
	var seen string
	r := identityRouter(IdentityConfig{Secret: testSecret}, &seen)

	expired := sign(t, jwt.RegisteredClaims{Subject: "s", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))})
	assert.Equal(t, http.StatusUnauthorized, get(r, expired).Code)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "s",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, foreign).Code)
}

func TestIdentityAnonymousAllowedUnlessRequired(t *testing.T) {
	var seen string
	assert.Equal(t, http.StatusNoContent, get(identityRouter(IdentityConfig{Secret: testSecret}, &seen), "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(identityRouter(IdentityConfig{Secret: testSecret, Required: true}, &seen), "").Code)
}
