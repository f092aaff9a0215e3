package service

import (
	"context"
	"time"

	"cubeduel/events"
	"cubeduel/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, telegramID int64, username string, initialStars decimal.Decimal) (*models.User, error) {
	args := m.Called(ctx, telegramID, username, initialStars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

func (m *MockUserRepository) AddStars(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockUserRepository) DeductStars(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockUserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	args := m.Called(ctx, id, banned)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockCubeMatchRepository is a mock implementation of CubeMatchRepository
type MockCubeMatchRepository struct {
	mock.Mock
}

func (m *MockCubeMatchRepository) GetByID(ctx context.Context, id int64) (*models.CubeMatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.CubeMatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) FindOpenTable(ctx context.Context, wager decimal.Decimal, excludeUserID int64) (*models.CubeMatch, error) {
	args := m.Called(ctx, wager, excludeUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) OpenTable(ctx context.Context, playerID int64, wager decimal.Decimal) (*models.CubeMatch, error) {
	args := m.Called(ctx, playerID, wager)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) SeatSecondPlayer(ctx context.Context, matchID int64, playerID int64) (*models.CubeMatch, error) {
	args := m.Called(ctx, matchID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) RecordThrow(ctx context.Context, matchID int64, turnNumber int, value int) (*models.CubeMatch, error) {
	args := m.Called(ctx, matchID, turnNumber, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) ResetRound(ctx context.Context, matchID int64, turnNumber int) (*models.CubeMatch, error) {
	args := m.Called(ctx, matchID, turnNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) RecordForfeit(ctx context.Context, matchID int64, leavingPlayerID int64) (*models.CubeMatch, error) {
	args := m.Called(ctx, matchID, leavingPlayerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) Finish(ctx context.Context, matchID int64, winnerID int64) error {
	args := m.Called(ctx, matchID, winnerID)
	return args.Error(0)
}

func (m *MockCubeMatchRepository) Cancel(ctx context.Context, matchID int64) error {
	args := m.Called(ctx, matchID)
	return args.Error(0)
}

func (m *MockCubeMatchRepository) ActiveMatchFor(ctx context.Context, userID int64) (*models.CubeMatch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) ListInProgress(ctx context.Context) ([]*models.CubeMatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CubeMatch), args.Error(1)
}

func (m *MockCubeMatchRepository) CountWaiting(ctx context.Context, wager decimal.Decimal) (int, error) {
	args := m.Called(ctx, wager)
	return args.Int(0), args.Error(1)
}

func (m *MockCubeMatchRepository) CountActivePlayers(ctx context.Context, wager decimal.Decimal) (int, error) {
	args := m.Called(ctx, wager)
	return args.Int(0), args.Error(1)
}

func (m *MockCubeMatchRepository) GetStats(ctx context.Context, commissionPercent decimal.Decimal) (*models.CubeGameStats, error) {
	args := m.Called(ctx, commissionPercent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CubeGameStats), args.Error(1)
}

func (m *MockCubeMatchRepository) GetUserStats(ctx context.Context, userID int64) (*models.UserCubeStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserCubeStats), args.Error(1)
}

func (m *MockCubeMatchRepository) DeleteCanceledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockGameSettingsRepository is a mock implementation of GameSettingsRepository
type MockGameSettingsRepository struct {
	mock.Mock
}

func (m *MockGameSettingsRepository) Get(ctx context.Context, key string) (*models.GameSetting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSetting), args.Error(1)
}

func (m *MockGameSettingsRepository) Upsert(ctx context.Context, key string, value decimal.Decimal) (*models.GameSetting, error) {
	args := m.Called(ctx, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSetting), args.Error(1)
}

func (m *MockGameSettingsRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockGameSettingsRepository) List(ctx context.Context) ([]*models.GameSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GameSetting), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockThrowGuard is a mock implementation of ThrowGuard
type MockThrowGuard struct {
	mock.Mock
}

func (m *MockThrowGuard) Acquire(ctx context.Context, matchID int64, seat models.Seat) (bool, error) {
	args := m.Called(ctx, matchID, seat)
	return args.Bool(0), args.Error(1)
}

func (m *MockThrowGuard) Release(ctx context.Context, matchID int64, seat models.Seat) error {
	args := m.Called(ctx, matchID, seat)
	return args.Error(0)
}

func (m *MockThrowGuard) Clear(ctx context.Context, matchID int64) error {
	args := m.Called(ctx, matchID)
	return args.Error(0)
}

// MockCooldownStore is a mock implementation of CooldownStore
type MockCooldownStore struct {
	mock.Mock
}

func (m *MockCooldownStore) Start(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockCooldownStore) Remaining(ctx context.Context, telegramID int64) (time.Duration, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(time.Duration), args.Error(1)
}
