package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return Transient(errors.New("upstream 503"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return Permanent(errors.New("404 not found"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return Transient(errors.New("timeout"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsTransient(err))
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, 3, 10*time.Second, func() error {
		return Transient(errors.New("timeout"))
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient_Classification(t *testing.T) {
	assert.True(t, IsTransient(Transient(errors.New("x"))))
	assert.False(t, IsTransient(Permanent(errors.New("x"))))
	assert.False(t, IsTransient(errors.New("unclassified")))

	// Classification survives wrapping.
	wrapped := errors.Wrap(Transient(errors.New("x")), "outer")
	assert.True(t, IsTransient(wrapped))
}
