package llm

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxAttempts is the number of completion attempts made before giving up
	DefaultMaxAttempts = 5
	// DefaultInitialDelay is the wait after the first failed attempt; it doubles each time
	DefaultInitialDelay = 2 * time.Second
	// DefaultAttemptTimeout bounds a single completion attempt
	DefaultAttemptTimeout = 30 * time.Second
)

// RetryPolicy controls how a Caller retries a completion.
type RetryPolicy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns 5 attempts, 2s initial backoff and a 30s per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		InitialDelay:   DefaultInitialDelay,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// withDefaults fills zero or negative fields from DefaultRetryPolicy.
func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = def.AttemptTimeout
	}
	return p
}

// maxBackoff is the largest representable wait; doubling saturates here instead of overflowing.
const maxBackoff = time.Duration(math.MaxInt64)

// Backoff returns the wait that follows the failed attempt with 0-based index i.
func (p RetryPolicy) Backoff(i int) time.Duration {
	if i < 0 {
		i = 0
	}
	if p.InitialDelay <= 0 {
		return 0
	}
	if i >= 63 || p.InitialDelay > maxBackoff>>uint(i) {
		return maxBackoff
	}
	return p.InitialDelay << uint(i)
}

// CallTimeoutError is returned for an attempt that did not settle within the attempt timeout.
type CallTimeoutError struct {
	Attempt int
	Timeout time.Duration
}

func (e *CallTimeoutError) Error() string {
	return fmt.Sprintf("attempt %d timed out after %s", e.Attempt, e.Timeout)
}

// CallExhaustedError is returned when every attempt failed. Last is the final attempt's error.
type CallExhaustedError struct {
	Attempts int
	Last     error
}

func (e *CallExhaustedError) Error() string {
	return fmt.Sprintf("model call failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *CallExhaustedError) Unwrap() error {
	return e.Last
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// TimerFunc starts a timer for d and returns its channel and a stop function.
type TimerFunc func(d time.Duration) (<-chan time.Time, func() bool)

// Caller runs prompts against a Client with bounded retries, exponential backoff
// and a hard per-attempt timeout. It holds no per-call state and is safe for concurrent use.
type Caller struct {
	client   Client
	policy   RetryPolicy
	tier     ModelTier
	logger   logrus.FieldLogger
	sleep    SleepFunc
	newTimer TimerFunc
}

// CallerOption configures a Caller
type CallerOption func(*Caller)

// WithTier selects the model tier used for every call (default TierStandard).
func WithTier(tier ModelTier) CallerOption {
	return func(c *Caller) { c.tier = tier }
}

// WithLogger sets the logger receiving attempt events.
func WithLogger(logger logrus.FieldLogger) CallerOption {
	return func(c *Caller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep SleepFunc) CallerOption {
	return func(c *Caller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithTimer replaces the per-attempt timer.
func WithTimer(timer TimerFunc) CallerOption {
	return func(c *Caller) {
		if timer != nil {
			c.newTimer = timer
		}
	}
}

// NewCaller creates a Caller for client. Zero policy fields take their defaults.
func NewCaller(client Client, policy RetryPolicy, opts ...CallerOption) *Caller {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Caller{
		client:   client,
		policy:   policy.withDefaults(),
		tier:     TierStandard,
		logger:   discard,
		sleep:    sleepContext,
		newTimer: realTimer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective retry policy.
func (c *Caller) Policy() RetryPolicy {
	return c.policy
}

// Call sends prompt to the model and returns the raw completion text of the first
// successful attempt. The text is not inspected.
func (c *Caller) Call(ctx context.Context, prompt string) (string, error) {
	maxAttempts := c.policy.MaxAttempts
	var lastErr error

	for i := 0; i < maxAttempts; i++ {
		attempt := i + 1
		log := c.logger.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"model":        c.client.GetModel(c.tier),
		})
		log.Debug("calling model")

		start := time.Now()
		text, err := c.attempt(ctx, prompt, attempt)
		elapsed := time.Since(start)
		if err == nil {
			log.WithField("elapsed", elapsed).Info("model call succeeded")
			return text, nil
		}

		lastErr = err
		log.WithError(err).WithField("elapsed", elapsed).Warn("model call attempt failed")

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &CallExhaustedError{Attempts: attempt, Last: ctxErr}
		}
		if attempt == maxAttempts {
			break
		}

		delay := c.policy.Backoff(i)
		log.WithField("delay", delay).Info("retrying model call")
		if err := c.sleep(ctx, delay); err != nil {
			return "", &CallExhaustedError{Attempts: attempt, Last: err}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"max_attempts": maxAttempts,
	}).WithError(lastErr).Error("model call exhausted all attempts")

	return "", &CallExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

type completion struct {
	text string
	err  error
}

// attempt races one completion against the attempt timer. The losing completion
// writes into a buffered channel nobody reads, so its goroutine always exits.
func (c *Caller) attempt(ctx context.Context, prompt string, attempt int) (string, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("model client panicked: %v", r)}
			}
		}()
		text, err := c.client.GenerateContent(attemptCtx, prompt, c.tier)
		done <- completion{text: text, err: err}
	}()

	timeout, stop := c.newTimer(c.policy.AttemptTimeout)
	defer stop()

	select {
	case res := <-done:
		return res.text, res.err
	case <-timeout:
		return "", &CallTimeoutError{Attempt: attempt, Timeout: c.policy.AttemptTimeout}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func realTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}
