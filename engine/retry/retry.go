// Package retry provides bounded retries with exponential backoff for
// collaborator calls. Errors are classified as transient (retryable) or
// permanent; only transient failures are retried, and the final failure is
// returned to the caller, which degrades to its documented fallback.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// DefaultAttempts caps collaborator retries. Three attempts total: the
// initial call plus two retries.
const DefaultAttempts = 3

// DefaultBackoff is the initial backoff duration; it doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// Class represents the error category for retry decisions.
type Class int

const (
	// ClassTransient covers network timeouts and temporary upstream
	// unavailability (HTTP 5xx, 429).
	ClassTransient Class = iota
	// ClassPermanent covers validation failures, not-found and malformed
	// responses; retrying cannot help.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Original error
	Class    Class
}

func (c *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// Transient marks an error as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Original: err, Class: ClassTransient}
}

// Permanent marks an error as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Original: err, Class: ClassPermanent}
}

// IsTransient reports whether the error should be retried. Explicit
// classification wins; unclassified network timeouts count as transient,
// everything else as permanent.
func IsTransient(err error) bool {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Class == ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Do runs fn up to attempts times, sleeping backoff, 2*backoff, ... between
// tries. It stops early on permanent errors and on context cancellation.
func Do(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts {
			return err
		}

		slog.Debug("retry: transient failure",
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
