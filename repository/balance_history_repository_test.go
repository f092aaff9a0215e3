package repository

import (
	"context"
	"testing"

	"cubeduel/models"
	"cubeduel/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceHistoryRepository_RecordAndGetByUser(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, 5005, "erin", "10")
	matchID := int64(77)
	related := models.RelatedTypeCubeMatch

	first := &models.BalanceHistory{
		UserID:          user.ID,
		BalanceBefore:   decimal.NewFromInt(10),
		BalanceAfter:    decimal.NewFromInt(5),
		ChangeAmount:    decimal.NewFromInt(-5),
		TransactionType: models.TransactionTypeCubeLoss,
		TransactionMetadata: map[string]any{
			"match_id": matchID,
			"wager":    "5",
		},
		RelatedID:   &matchID,
		RelatedType: &related,
	}
	require.NoError(t, repo.Record(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &models.BalanceHistory{
		UserID:          user.ID,
		BalanceBefore:   decimal.NewFromInt(5),
		BalanceAfter:    decimal.NewFromInt(9),
		ChangeAmount:    decimal.NewFromInt(4),
		TransactionType: models.TransactionTypeCubeWin,
	}
	require.NoError(t, repo.Record(ctx, second))

	histories, err := repo.GetByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, histories, 2)

	// Newest first
	assert.Equal(t, second.ID, histories[0].ID)
	assert.Nil(t, histories[0].RelatedID)
	assert.Equal(t, first.ID, histories[1].ID)
	assert.True(t, histories[1].ChangeAmount.Equal(decimal.NewFromInt(-5)))
	require.NotNil(t, histories[1].RelatedType)
	assert.Equal(t, models.RelatedTypeCubeMatch, *histories[1].RelatedType)
	assert.Equal(t, "5", histories[1].TransactionMetadata["wager"])

	limited, err := repo.GetByUser(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
