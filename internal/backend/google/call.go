package google

import (
	"context"
	"sync"
	"time"

	"edger/internal/logger"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 10 * time.Second

// Caller runs API calls with rate limiting, a timeout and uniform error
// classification.
type Caller struct {
	API     string
	Limiter *RateLimiter
	Timeout time.Duration

	mu       sync.RWMutex
	handlers *ErrorHandlers
}

// NewCaller creates a Caller for the named API with default limits.
func NewCaller(api string) *Caller {
	return &Caller{
		API:     api,
		Limiter: NewRateLimiter(api),
		Timeout: DefaultTimeout,
	}
}

// SetErrorHandlers installs the quota and API error hooks.
func (c *Caller) SetErrorHandlers(h *ErrorHandlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// Do waits for the limiter, then runs fn under the call timeout.
// op names the call in debug output.
func (c *Caller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)

	c.mu.RLock()
	h := c.handlers
	c.mu.RUnlock()

	err = Classify(c.API, err, h)
	c.Limiter.Observe(err)
	if err != nil {
		logger.Debug("%s %s failed after %s: %v", c.API, op, time.Since(start).Round(time.Millisecond), err)
	} else {
		logger.Debug("%s %s ok in %s", c.API, op, time.Since(start).Round(time.Millisecond))
	}
	return err
}
