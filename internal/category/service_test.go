package category

import (
	"context"
	"testing"

	"getir-be/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, filter string, includeInactive bool) ([]Category, error) {
	args := m.Called(ctx, filter, includeInactive)
	return args.Get(0).([]Category), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id uint) (*Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, in Input) (*Category, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id uint, in Input) (*Category, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CountProducts(ctx context.Context, id uint) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("BlockedWhileReferenced", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		repo.On("CountProducts", ctx, uint(1)).Return(1, nil)

		err := svc.Delete(ctx, 1)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("RemovesUnusedCategory", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		repo.On("CountProducts", ctx, uint(2)).Return(0, nil)
		repo.On("Delete", ctx, uint(2)).Return(nil)

		require.NoError(t, svc.Delete(ctx, 2))
		repo.AssertExpectations(t)
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresBothNames", func(t *testing.T) {
		svc := NewService(new(MockRepository))
		_, err := svc.Create(ctx, Input{NameAr: " ", SortOrder: -1})

		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Fields, 3)
	})

	t.Run("Trims", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		repo.On("Create", ctx, Input{NameAr: "خضار", NameEn: "Vegetables"}).
			Return(&Category{ID: 1, NameAr: "خضار", NameEn: "Vegetables", IsActive: true}, nil)

		c, err := svc.Create(ctx, Input{NameAr: " خضار", NameEn: "Vegetables "})
		require.NoError(t, err)
		assert.True(t, c.IsActive)
	})
}
