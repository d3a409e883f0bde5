package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "ganhos/internal/log"
)

func TestMiddlewareSetsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	require.NotEmpty(t, seen)
	assert.True(t, strings.HasPrefix(seen, "req_"))
	assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"printable", "abc-123", true},
		{"with space", "abc 123", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, tt.incoming)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			got := rr.Header().Get(HeaderRequestID)
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEqual(t, tt.incoming, got)
				assert.True(t, strings.HasPrefix(got, "req_"))
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "127.0.0.1" })
	ok := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	fail := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	fail.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got := m.GetMetrics()
	assert.Equal(t, int64(2), got.TotalRequests)
	assert.Equal(t, int64(1), got.FailedRequests)
}

func TestLoggerMiddleware(t *testing.T) {
	m := NewMiddleware(nil)
	var logger *applog.Logger
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger = applog.FromContext(r.Context())
	})
	h := m.Middleware(LoggerMiddleware(applog.New(applog.DefaultConfig()))(inner))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, logger)
	assert.NotEqual(t, "unknown", logger.Component())
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
