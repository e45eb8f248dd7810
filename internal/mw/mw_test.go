package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 1, time.Minute)
	assert.True(t, l.GetLimiter("10.0.0.1").Allow())
	assert.False(t, l.GetLimiter("10.0.0.1").Allow())
	assert.True(t, l.GetLimiter("10.0.0.2").Allow())
}

func TestResponseCache(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0

	r := gin.New()
	r.Use(rc.Invalidate())
	r.GET("/items", rc.Cache(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", rc.Cache(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/broken", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	first := do(r, http.MethodGet, "/items", nil)
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())

	second := do(r, http.MethodGet, "/items", nil)
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))

	// Failed writes leave the cache alone.
	do(r, http.MethodPost, "/broken", nil)
	assert.JSONEq(t, `{"calls":1}`, do(r, http.MethodGet, "/items", nil).Body.String())

	do(r, http.MethodPost, "/items", nil)
	assert.JSONEq(t, `{"calls":2}`, do(r, http.MethodGet, "/items", nil).Body.String())

	// Errors are never cached.
	do(r, http.MethodGet, "/missing", nil)
	do(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, 4, calls)
}

func TestResponseCache_Disabled(t *testing.T) {
	rc := NewResponseCache(0)
	calls := 0
	r := gin.New()
	r.GET("/", rc.Cache(), func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})
	do(r, http.MethodGet, "/", nil)
	do(r, http.MethodGet, "/", nil)
	assert.Equal(t, 2, calls)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := do(r, http.MethodGet, "/", nil)
	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, w.Body.String())

	given := uuid.NewString()
	w = do(r, http.MethodGet, "/", http.Header{RequestIDHeader: {given}})
	assert.Equal(t, given, w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/", http.Header{RequestIDHeader: {"not-a-uuid"}})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	valid, err := IssueToken(secret, "ops", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, "ops", -time.Hour)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", "ops", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Auth(secret))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("subject")) })

	testCases := []struct {
		name     string
		method   string
		header   string
		expected int
		body     string
	}{
		{name: "reads are open", method: http.MethodGet, expected: http.StatusOK},
		{name: "write without token", method: http.MethodPost, expected: http.StatusUnauthorized},
		{name: "write with valid token", method: http.MethodPost, header: "Bearer " + valid, expected: http.StatusOK, body: "ops"},
		{name: "expired token", method: http.MethodPost, header: "Bearer " + expired, expected: http.StatusUnauthorized, body: `{"error":"token expired"}`},
		{name: "wrong signing key", method: http.MethodPost, header: "Bearer " + foreign, expected: http.StatusUnauthorized, body: `{"error":"invalid token"}`},
		{name: "wrong scheme", method: http.MethodPost, header: "Basic abc", expected: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.header != "" {
				h.Set("Authorization", tc.header)
			}
			w := do(r, tc.method, "/", h)
			assert.Equal(t, tc.expected, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestAuth_DisabledWithoutSecret(t *testing.T) {
	r := gin.New()
	r.Use(Auth(""))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/", nil).Code)

	_, err := IssueToken("", "ops", time.Hour)
	assert.Error(t, err)
}
