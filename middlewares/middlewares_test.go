package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restroflow/utils"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"actor": actor.Name, "role": RoleFrom(c)})
	})
	return r
}

func get(r *gin.Engine, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, waiterID uint, username, role string) http.Header {
	t.Helper()
	token, err := utils.GenerateToken(waiterID, username, role, time.Hour)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestAuthMiddleware(t *testing.T) {
	r := newEngine(AuthMiddleware())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", http.Header{"Authorization": {"Token abc"}}).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", http.Header{"Authorization": {"Bearer abc"}}).Code)

	w := get(r, "/", bearer(t, 4, "maria", utils.RoleWaiter))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actor":"maria","role":"waiter"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newEngine(AuthMiddleware(), RequireRole(utils.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, get(r, "/", bearer(t, 4, "maria", utils.RoleWaiter)).Code)
	assert.Equal(t, http.StatusOK, get(r, "/", bearer(t, 0, "admin", utils.RoleAdmin)).Code)
}

func TestStreamAuthAcceptsQueryToken(t *testing.T) {
	r := newEngine(StreamAuthMiddleware())
	token, err := utils.GenerateToken(0, "admin", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(r, "/?token="+token, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/", http.Header{"Authorization": {"Bearer " + token}}).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", nil).Code)
}

func TestRateLimiterPerIP(t *testing.T) {
	r := newEngine(NewRateLimiter(0.001, 2).RateLimit())

	first := http.Header{"X-Forwarded-For": {"10.0.0.1"}}
	assert.Equal(t, http.StatusOK, get(r, "/", first).Code)
	assert.Equal(t, http.StatusOK, get(r, "/", first).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/", first).Code)

	second := http.Header{"X-Forwarded-For": {"10.0.0.2"}}
	assert.Equal(t, http.StatusOK, get(r, "/", second).Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w := get(r, "/", nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	w = get(r, "/", http.Header{HeaderRequestID: {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestCORSMiddlewares(t *testing.T) {
	r := newEngine(CORSMiddlewares([]string{"https://host.example"}))

	w := get(r, "/", http.Header{"Origin": {"https://host.example"}})
	assert.Equal(t, "https://host.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/", http.Header{"Origin": {"https://evil.example"}})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := newEngine(SecurityHeaders())

	w := get(r, "/", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = get(r, "/", http.Header{"X-Forwarded-Proto": {"https"}})
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}
