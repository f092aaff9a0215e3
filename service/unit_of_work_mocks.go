package service

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return whatever was handed to SetRepositories without recording calls.
type MockUnitOfWork struct {
	mock.Mock

	userRepo           UserRepository
	balanceHistoryRepo BalanceHistoryRepository
	cubeMatchRepo      CubeMatchRepository
	gameSettingsRepo   GameSettingsRepository
	eventBus           EventPublisher
}

// SetRepositories wires the repositories the unit of work hands out
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	balanceHistoryRepo BalanceHistoryRepository,
	cubeMatchRepo CubeMatchRepository,
	gameSettingsRepo GameSettingsRepository,
	eventBus EventPublisher,
) {
	m.userRepo = userRepo
	m.balanceHistoryRepo = balanceHistoryRepo
	m.cubeMatchRepo = cubeMatchRepo
	m.gameSettingsRepo = gameSettingsRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}

func (m *MockUnitOfWork) CubeMatchRepository() CubeMatchRepository {
	return m.cubeMatchRepo
}

func (m *MockUnitOfWork) GameSettingsRepository() GameSettingsRepository {
	return m.gameSettingsRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
