package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failure")

// TestCircuitBreaker_PassesThroughWhenClosed verifies normal operation.
func TestCircuitBreaker_PassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker()

	result, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", cb.State())

	m := cb.Metrics()
	assert.Equal(t, uint64(1), m.TotalRequests)
	assert.Equal(t, uint64(1), m.TotalSuccesses)
}

// TestCircuitBreaker_OpensAfterConsecutiveFailures verifies the trip
// threshold and the fast-fail behavior once open.
func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		MaxFailures:          3,
		Timeout:              time.Minute,
		HalfOpenMaxSuccesses: 1,
	})

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), func() (interface{}, error) {
			return nil, errUpstream
		})
		require.ErrorIs(t, err, errUpstream)
	}

	assert.Equal(t, "open", cb.State())

	called := false
	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open circuit must not invoke the function")
}

// TestCircuitBreaker_RecoversViaHalfOpen verifies the half-open probe path.
func TestCircuitBreaker_RecoversViaHalfOpen(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		MaxFailures:          1,
		Timeout:              20 * time.Millisecond,
		HalfOpenMaxSuccesses: 1,
	})

	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return nil, errUpstream
	})
	require.ErrorIs(t, err, errUpstream)
	require.Equal(t, "open", cb.State())

	time.Sleep(30 * time.Millisecond)

	result, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, "closed", cb.State())
}

// TestCircuitBreaker_CancelledContext verifies that an already-cancelled
// context fails without invoking the function.
func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := cb.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, uint64(1), cb.Metrics().TotalFailures)
}
