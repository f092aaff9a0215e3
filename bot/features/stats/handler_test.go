package stats

import (
	"context"
	"testing"

	"cubeduel/bot/bottest"
	"cubeduel/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func TestFormatCubeStats(t *testing.T) {
	message := FormatCubeStats(&models.CubeGameStats{
		TotalGames:        2,
		TotalWagered:      decimal.NewFromInt(15),
		TotalWon:          decimal.NewFromInt(12),
		TotalLost:         decimal.NewFromInt(15),
		BotCommission:     decimal.NewFromInt(3),
		CommissionPercent: decimal.NewFromInt(20),
	})

	assert.Contains(t, message, "Всего игр: <code>2</code>")
	assert.Contains(t, message, "Выиграно: <code>12.00⭐</code>")
	assert.Contains(t, message, "Комиссия бота: <code>3.00⭐</code>")
	assert.Contains(t, message, "Текущая комиссия: <b>20%</b>")
}

func TestHandleCubeStats(t *testing.T) {
	isAdmin := func(id int64) bool { return id == 1 }

	t.Run("admin", func(t *testing.T) {
		svc := new(mockStatsService)
		svc.On("GetCubeGameStats", mock.Anything).Return(&models.CubeGameStats{CommissionPercent: decimal.NewFromInt(20)}, nil)

		c := bottest.NewMessage(1, "admin")
		require.NoError(t, NewFeature(svc, isAdmin).HandleCubeStats(c))

		assert.Contains(t, c.LastText(), "Всего игр")
	})

	t.Run("regular user", func(t *testing.T) {
		svc := new(mockStatsService)

		c := bottest.NewMessage(2, "bob")
		require.NoError(t, NewFeature(svc, isAdmin).HandleCubeStats(c))

		assert.Contains(t, c.LastText(), "только администраторам")
		svc.AssertNotCalled(t, "GetCubeGameStats", mock.Anything)
	})
}
