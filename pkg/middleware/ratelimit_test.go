package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(perSecond float64, burst int, idle time.Duration) (*limiterStore, *manualClock) {
	clock := &manualClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := newLimiterStore(perSecond, burst, idle)
	store.nowFunc = clock.Now
	store.lastSweep = clock.Now()
	return store, clock
}

func voteRequest(memberID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/whiskies/w/votes", nil)
	if memberID != "" {
		req = req.WithContext(WithClaims(req.Context(), &Claims{MemberID: memberID, Role: "USER"}))
	}
	return req
}

func TestRateLimit_PerMemberBuckets(t *testing.T) {
	store, clock := newTestLimiter(1, 2, time.Minute)
	var buf bytes.Buffer
	handler := rateLimit(store, newBufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	serve := func(member string) int {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, voteRequest(member))
		return rr.Code
	}

	assert.Equal(t, http.StatusCreated, serve("alice"))
	assert.Equal(t, http.StatusCreated, serve("alice"))
	assert.Equal(t, http.StatusTooManyRequests, serve("alice"))

	// Another member has an independent bucket.
	assert.Equal(t, http.StatusCreated, serve("bob"))

	clock.Advance(time.Second)
	assert.Equal(t, http.StatusCreated, serve("alice"))
	assert.Contains(t, buf.String(), "rate limit exceeded")
}

func TestRateLimit_RejectionUsesEnvelope(t *testing.T) {
	store, _ := newTestLimiter(1, 1, time.Minute)
	var buf bytes.Buffer
	handler := rateLimit(store, newBufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), voteRequest("alice"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, voteRequest("alice"))

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rr).Code)
}

func TestRateLimit_AnonymousFallsBackToIP(t *testing.T) {
	store, _ := newTestLimiter(1, 1, time.Minute)
	var buf bytes.Buffer
	handler := rateLimit(store, newBufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := voteRequest("")
	first.RemoteAddr = "10.0.0.1:5000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	assert.Equal(t, http.StatusOK, rr.Code)

	second := voteRequest("")
	second.RemoteAddr = "10.0.0.1:6000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, second)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	other := voteRequest("")
	other.RemoteAddr = "10.0.0.2:5000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLimiterStore_SweepsIdleBuckets(t *testing.T) {
	store, clock := newTestLimiter(1, 1, time.Minute)

	store.allow("member:a")
	store.allow("member:b")
	require.Equal(t, 2, store.len())

	clock.Advance(30 * time.Second)
	store.allow("member:b")

	clock.Advance(45 * time.Second)
	store.allow("member:c")

	// a idle for 75s is dropped, b idle for 45s survives.
	assert.Equal(t, 2, store.len())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.9:1234", "203.0.113.7"},
		{"real ip", "", "198.51.100.4", "10.0.0.9:1234", "198.51.100.4"},
		{"garbage forwarded", "not-an-ip", "", "10.0.0.9:1234", "10.0.0.9"},
		{"remote without port", "", "", "10.0.0.9", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
