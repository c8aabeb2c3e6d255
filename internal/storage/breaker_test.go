package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docqr/internal/storage"
	"docqr/internal/storage/mocks"
)

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := new(mocks.MockStorage)
	inner.On("Stat", ctx, "a.pdf").Return(storage.ObjectInfo{}, errors.New("connection refused")).Times(3)

	s := storage.WithBreaker(inner, storage.BreakerSettings{Name: "test", FailureThreshold: 3})

	for i := 0; i < 3; i++ {
		_, err := s.Stat(ctx, "a.pdf")
		assert.EqualError(t, err, "connection refused")
	}

	_, err := s.Stat(ctx, "a.pdf")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	inner.AssertExpectations(t)
}

func TestWithBreaker_NotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	inner := new(mocks.MockStorage)
	inner.On("Open", ctx, "gone.pdf").Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)
	inner.On("Delete", ctx, "gone.pdf").Return(nil)

	s := storage.WithBreaker(inner, storage.BreakerSettings{FailureThreshold: 1})

	for i := 0; i < 3; i++ {
		_, _, err := s.Open(ctx, "gone.pdf")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	}
	assert.NoError(t, s.Delete(ctx, "gone.pdf"))
	inner.AssertNumberOfCalls(t, "Open", 3)
}

func TestWithBreaker_PassesResultsThrough(t *testing.T) {
	ctx := context.Background()
	inner := new(mocks.MockStorage)
	want := storage.ObjectInfo{Key: "a.pdf", Size: 10}
	inner.On("Put", ctx, "a.pdf", mock.Anything, mock.Anything).Return(want, nil)

	s := storage.WithBreaker(inner, storage.BreakerSettings{})

	got, err := s.Put(ctx, "a.pdf", nil, storage.PutObjectOptions{})
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}
