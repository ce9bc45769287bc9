package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimit1Addr(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name     string
		callRPS  int
		limitRPS int
	}

	tests := []testCase{
		{name: "success", callRPS: 100, limitRPS: 500},
		{name: "block-me", callRPS: 1000, limitRPS: 500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(tc testCase) func(t *testing.T) {
			return func(t *testing.T) {
				t.Parallel()

				cfg := RateLimiterConfig{
					MaxRPI:   uint64(tc.limitRPS),
					Interval: time.Second,
				}
				rlcm, err := RateLimitController(cfg)
				require.NoError(t, err)
				rlc := rlcm(dummyHandler{})

				r, err := http.NewRequestWithContext(context.Background(), "", "", nil)
				require.NoError(t, err)
				r.Header.Set("X-Forwarded-For", "10.0.0.1")

				res := httptest.NewRecorder()

				// Verify that after some seconds making requests with the configured
				// callRPS with the limitRPS, we are getting the expected output:
				// - If callRPS < limitRPS, we never get a 429.
				// - If callRPS > limitRPS, we eventually should see a 429.
				assertFunc := require.Eventually
				if tc.callRPS < tc.limitRPS {
					assertFunc = require.Never
				}
				assertFunc(t, func() bool {
					rlc.ServeHTTP(res, r)
					return res.Code == 429
				}, time.Second*5, time.Second/time.Duration(tc.callRPS))
			}
		}(tc))
	}
}

type dummyHandler struct{}

func (dh dummyHandler) ServeHTTP(_ http.ResponseWriter, _ *http.Request) {}
