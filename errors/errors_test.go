package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.class.String())
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"sink rejected", ErrSinkRejected, ErrorTransient},
		{"deadline", context.DeadlineExceeded, ErrorTransient},
		{"invalid data", ErrInvalidData, ErrorInvalid},
		{"wrapped invalid data", fmt.Errorf("decode: %w", ErrInvalidData), ErrorInvalid},
		{"bind failed", ErrBindFailed, ErrorFatal},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"unknown defaults to transient", errors.New("something odd"), ErrorTransient},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: errors.New("x")}, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestIsTransient_MessagePatterns(t *testing.T) {
	assert.True(t, IsTransient(errors.New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(errors.New("connection refused")))
	assert.False(t, IsTransient(ErrInvalidData))
	assert.False(t, IsTransient(nil))
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	err := Wrap(base, "HTTPSink", "Send", "post batch")
	require.Error(t, err)
	assert.Equal(t, "HTTPSink.Send: post batch failed: boom", err.Error())
	assert.ErrorIs(t, err, base)

	assert.NoError(t, Wrap(nil, "a", "b", "c"))
}

func TestWrapClassified(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wrap(base, "Source", "Start", "bind socket")

			var ce *ClassifiedError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, "Source", ce.Component)
			assert.Equal(t, "Start", ce.Operation)
			assert.Equal(t, "Source.Start: bind socket failed: boom", err.Error())
			assert.ErrorIs(t, err, base)
			assert.Equal(t, tt.class, Classify(err))

			assert.NoError(t, tt.wrap(nil, "a", "b", "c"))
		})
	}
}
