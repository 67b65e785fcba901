package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte("tea"))
})

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, 2, func() time.Time { return now })
	h := rl.Limit(okHandler)

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusTeapot, hit("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTeapot, hit("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:1002"))
	assert.Equal(t, http.StatusTeapot, hit("10.0.0.2:1000"), "other clients keep their own bucket")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusTeapot, hit("10.0.0.1:1003"))
}

func TestRateLimiter_SweepDropsIdleVisitors(t *testing.T) {
	now := time.Now()
	rl := newRateLimiter(1, 1, func() time.Time { return now })
	require.True(t, rl.allow("a"))

	now = now.Add(visitorIdle + time.Second)
	rl.sweep()
	assert.Empty(t, rl.visitors)
}

func corsRequest(h http.Handler, method, origin string, preflight bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com", "https://*.preview.example.com"})(okHandler)

	rec := corsRequest(h, http.MethodGet, "https://app.example.com", false)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = corsRequest(h, http.MethodGet, "https://pr-12.preview.example.com", false)
	assert.Equal(t, "https://pr-12.preview.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	for _, origin := range []string{"https://evil.example.com", "http://pr-12.preview.example.com", "https://preview.example.com"} {
		rec = corsRequest(h, http.MethodGet, origin, false)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"*"})(okHandler)

	rec := corsRequest(h, http.MethodOptions, "https://anywhere.test", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://anywhere.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	rec = corsRequest(h, http.MethodOptions, "https://anywhere.test", false)
	assert.Equal(t, http.StatusTeapot, rec.Code, "plain OPTIONS reaches the handler")
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := chimiddleware.RequestID(Logging(logger)(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/documents", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.EqualValues(t, 3, line["bytes"])
	assert.NotEmpty(t, line["request_id"])
}
