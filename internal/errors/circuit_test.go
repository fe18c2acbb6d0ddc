package errors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend failure")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker allowing three failures
	cb := NewCircuitBreaker("embeddings", WithMaxFailures(3))

	// When: three calls fail
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	}

	// Then: further calls fail fast without running fn
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	// Given: an open breaker with a short reset timeout
	cb := NewCircuitBreaker("embeddings", WithMaxFailures(1), WithResetTimeout(10*time.Millisecond))
	_ = cb.Execute(func() error { return errBackend })
	require.Equal(t, StateOpen, cb.State())

	// When: the timeout elapses
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	// Then: a failed probe reopens it
	_ = cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateOpen, cb.State())

	// And a successful probe closes it
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_FailureFilter(t *testing.T) {
	// Given: a breaker that counts only retryable errors
	cb := NewCircuitBreaker("embeddings", WithMaxFailures(1), WithFailureFilter(IsRetryable))

	// When: a caller error occurs
	_ = cb.Execute(func() error { return ValidationError("bad input", nil) })

	// Then: the circuit stays closed
	assert.Equal(t, StateClosed, cb.State())

	// When: a backend error occurs
	_ = cb.Execute(func() error { return NetworkError("timeout", nil) })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitDo_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker("embeddings")

	v, err := CircuitDo(cb, func() ([]float32, error) { return []float32{1, 2}, nil })
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)

	cb = NewCircuitBreaker("embeddings", WithMaxFailures(1))
	_, _ = CircuitDo(cb, func() (int, error) { return 0, errBackend })
	v2, err := CircuitDo(cb, func() (int, error) { return 7, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, v2)
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker("embeddings", WithMaxFailures(1000))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cb.Execute(func() error {
				if i%2 == 0 {
					return errBackend
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, StateClosed, cb.State())
}

func TestNewCircuitBreaker_DefaultValues(t *testing.T) {
	cb := NewCircuitBreaker("x")

	assert.Equal(t, "x", cb.Name())
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
