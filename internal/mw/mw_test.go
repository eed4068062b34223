package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCache(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	calls := 0

	r := gin.New()
	r.GET("/tariffs", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/broken", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	get := func(path string, headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/tariffs", nil)
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":1}`, w.Body.String())

	w = get("/tariffs", nil)
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"calls":1}`, w.Body.String())

	w = get("/tariffs", map[string]string{"Cache-Control": "no-cache"})
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":2}`, w.Body.String())

	w = get("/tariffs", nil)
	assert.JSONEq(t, `{"calls":2}`, w.Body.String(), "a bypass refreshes the stored copy")

	store.Flush()
	w = get("/tariffs", nil)
	assert.JSONEq(t, `{"calls":3}`, w.Body.String())

	get("/broken", nil)
	w = get("/broken", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 5, calls, "errors are never cached")
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2, "X-Terminal-IP"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(terminal string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if terminal != "" {
			req.Header.Set("X-Terminal-IP", terminal)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusOK, get("10.0.0.1, 172.16.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1"))

	assert.Equal(t, http.StatusOK, get("10.0.0.2"), "other terminals keep their own budget")
}

func TestClientKey(t *testing.T) {
	testCases := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{name: "No header configured", header: "", value: "", expected: "192.0.2.1"},
		{name: "Header missing", header: "X-Real-IP", value: "", expected: "192.0.2.1"},
		{name: "Single address", header: "X-Real-IP", value: "10.0.0.9", expected: "10.0.0.9"},
		{name: "Forwarded chain", header: "X-Real-IP", value: " 10.0.0.9 , 10.0.0.1", expected: "10.0.0.9"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.value != "" {
				c.Request.Header.Set("X-Real-IP", tc.value)
			}
			assert.Equal(t, tc.expected, ClientKey(c, tc.header))
		})
	}
}
