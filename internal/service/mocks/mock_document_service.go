package mocks

import (
	"context"
	"io"

	"docqr/internal/model"
	"docqr/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, rawUsername string) (*model.Document, error) {
	args := m.Called(ctx, rawUsername)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Upload(ctx context.Context, rawUsername string, r io.Reader, originalFilename string) (*model.Document, error) {
	args := m.Called(ctx, rawUsername, r, originalFilename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context) ([]model.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) GetByUsername(ctx context.Context, username string) (*model.Document, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Open(ctx context.Context, filename string) (storage.Object, storage.ObjectInfo, error) {
	args := m.Called(ctx, filename)
	var obj storage.Object
	if v := args.Get(0); v != nil {
		obj = v.(storage.Object)
	}
	return obj, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockDocumentService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentService) RelocateLegacy(ctx context.Context, dir string) (int, error) {
	args := m.Called(ctx, dir)
	return args.Int(0), args.Error(1)
}
