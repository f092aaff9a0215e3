package httpapi

import (
	"context"

	"cubeduel/models"
	"cubeduel/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockCubeGameService struct {
	mock.Mock
	service.CubeGameService
}

func (m *mockCubeGameService) GetLobby(ctx context.Context) ([]*models.TableCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TableCounts), args.Error(1)
}

type mockStatsService struct {
	mock.Mock
}

func (m *mockStatsService) GetCubeGameStats(ctx context.Context) (*models.CubeGameStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeGameStats), args.Error(1)
}

func (m *mockStatsService) GetUserStats(ctx context.Context, userID int64) (*models.UserCubeStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserCubeStats), args.Error(1)
}

type mockSettingsService struct {
	mock.Mock
}

func (m *mockSettingsService) Get(ctx context.Context, key string) (decimal.Decimal, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockSettingsService) GetOrDefault(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, key, fallback)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockSettingsService) Update(ctx context.Context, key string, value decimal.Decimal) (*models.GameSetting, error) {
	args := m.Called(ctx, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSetting), args.Error(1)
}

func (m *mockSettingsService) List(ctx context.Context) ([]*models.GameSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GameSetting), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetOrCreateUser(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	args := m.Called(ctx, telegramID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) GetBalanceHistory(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *mockUserService) AdjustStars(ctx context.Context, telegramID int64, delta decimal.Decimal, reason string) (*models.User, error) {
	args := m.Called(ctx, telegramID, delta, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) SetBanned(ctx context.Context, telegramID int64, banned bool) error {
	args := m.Called(ctx, telegramID, banned)
	return args.Error(0)
}
