package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errGatewayDown = errors.New("gateway down")

func failingCB(threshold int) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		SuccessThreshold: 2,
		OpenTimeout:      20 * time.Millisecond,
	})
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := failingCB(3)

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return errGatewayDown })
		require.ErrorIs(t, err, errGatewayDown)
	}
	assert.Equal(t, CBOpen, cb.State())

	// While open the wrapped call must not run at all.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := failingCB(1)

	require.Error(t, cb.Execute(func() error { return errGatewayDown }))
	require.Equal(t, CBOpen, cb.State())

	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, CBHalfOpen, cb.State())

	// Two probe successes close the breaker again.
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb := failingCB(1)

	require.Error(t, cb.Execute(func() error { return errGatewayDown }))
	time.Sleep(25 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	require.Error(t, cb.Execute(func() error { return errGatewayDown }))
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := failingCB(3)

	require.Error(t, cb.Execute(func() error { return errGatewayDown }))
	require.Error(t, cb.Execute(func() error { return errGatewayDown }))
	require.NoError(t, cb.Execute(func() error { return nil }))

	// Streak broken: two more failures must not trip a threshold of three.
	require.Error(t, cb.Execute(func() error { return errGatewayDown }))
	require.Error(t, cb.Execute(func() error { return errGatewayDown }))
	assert.Equal(t, CBClosed, cb.State())
}
