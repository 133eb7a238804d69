package common

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResourceError_Unwraps(t *testing.T) {
	err := ResourceError("pdftoppm page 3", io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, ErrResource))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeResource, appErr.Code)
	assert.Nil(t, ResourceError("noop", nil))
}

func TestDimensionError(t *testing.T) {
	err := DimensionError(10, 20, 10, 21)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "10x20 vs 10x21")
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ctx"))
	err := WrapError(ErrNotFound, "load run")
	assert.EqualError(t, err, "load run: resource not found")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"invalid", WrapError(ErrInvalidInput, "x"), codes.InvalidArgument},
		{"dimension", DimensionError(1, 1, 2, 2), codes.InvalidArgument},
		{"not found", ErrNotFound, codes.NotFound},
		{"unsupported", ErrUnsupported, codes.Unimplemented},
		{"resource", ResourceError("open", io.EOF), codes.FailedPrecondition},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"other", errors.New("boom"), codes.Internal},
		{"already status", status.Error(codes.Aborted, "x"), codes.Aborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(StatusFromError(tt.err))
			assert.True(t, ok)
			assert.Equal(t, tt.want, st.Code())
		})
	}
	assert.Nil(t, StatusFromError(nil))
}
