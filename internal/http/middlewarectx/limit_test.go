package middlewarectx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/lead-intake/internal/http/middlewarectx"
)

func TestRateLimitMiddleware(t *testing.T) {
	logger := newNoopLogger()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	middleware := middlewarectx.RateLimitMiddleware(logger)(nextHandler)

	limited := false
	for range 30 {
		req := httptest.NewRequest(http.MethodPost, "/trials", nil)
		rec := httptest.NewRecorder()
		middleware.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.True(t, limited, "expected rate limiter to reject requests after burst")
}
