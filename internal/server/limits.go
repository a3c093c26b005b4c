package server

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/kartikbazzad/bunbase/lookup/internal/config"
	"github.com/kartikbazzad/bunbase/lookup/internal/middleware"
)

const loginLimiterTTL = 15 * time.Minute

// NewLoginLimiter returns the per-IP limiter guarding POST /login.
func NewLoginLimiter(cfg config.RateLimitConfig) *middleware.RateLimiter {
	perMinute := cfg.LoginPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(perMinute/2, 1)
	}
	return middleware.NewRateLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst, loginLimiterTTL)
}
