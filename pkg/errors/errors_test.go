package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain error", err: fmt.Errorf("boom"), want: KindUnknown},
		{name: "not found app error", err: NewNotFoundError("order x"), want: KindNotFound},
		{name: "wrapped app error", err: fmt.Errorf("repo: %w", NewUnavailableError("down")), want: KindUnavailable},
		{name: "bare sentinel", err: fmt.Errorf("%w: detail", ErrMalformedDocument), want: KindMalformedDocument},
		{name: "propagation", err: NewPropagationError(fmt.Errorf("write failed")), want: KindPropagation},
		{name: "transient query", err: NewTransientQueryError(fmt.Errorf("timeout")), want: KindTransientQuery},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestPropagationErrorKeepsCause(t *testing.T) {
	t.Parallel()

	cause := context.DeadlineExceeded
	err := NewPropagationError(cause)

	assert.ErrorIs(t, err, ErrPropagation)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, StatusCode(NewNotFoundError("x")))
	assert.Equal(t, http.StatusBadRequest, StatusCode(fmt.Errorf("%w", ErrMissingIdentity)))
	assert.Equal(t, http.StatusBadGateway, StatusCode(NewPropagationError(fmt.Errorf("x"))))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(fmt.Errorf("x")))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryable(NewUnavailableError("down")))
	assert.True(t, IsRetryable(fmt.Errorf("%w", ErrTransientQuery)))
	assert.False(t, IsRetryable(NewPropagationError(fmt.Errorf("x"))))
	assert.False(t, IsRetryable(NewNotFoundError("x")))
}

func TestWrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, KindUnavailable, "query orders")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUnavailable, KindOf(fmt.Errorf("feed: %w", err)))
	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
	assert.True(t, err.Retryable)
	assert.Equal(t, "query orders: connection refused", err.Error())

	malformed := Wrap(NewNotFoundError("inner"), KindMalformedDocument, "document d1")
	assert.Equal(t, KindMalformedDocument, KindOf(malformed))
	assert.Equal(t, http.StatusInternalServerError, malformed.StatusCode)
	assert.False(t, malformed.Retryable)
}
