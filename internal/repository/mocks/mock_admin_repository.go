package mocks

import (
	"context"

	"docqr/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) FindByUsername(ctx context.Context, username string) (*model.Admin, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Admin), args.Error(1)
}

func (m *MockAdminRepository) Upsert(ctx context.Context, username, passwordHash string) (bool, error) {
	args := m.Called(ctx, username, passwordHash)
	return args.Bool(0), args.Error(1)
}
