package testutil

import (
	"context"
	"testing"

	"cubeduel/database"
	"cubeduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestUser inserts a user holding the given stars balance
func CreateTestUser(t *testing.T, db *database.DB, telegramID int64, username string, stars string) *models.User {
	t.Helper()

	var user models.User
	err := db.QueryRow(context.Background(), `
		INSERT INTO users (telegram_id, username, stars)
		VALUES ($1, $2, $3)
		RETURNING id, telegram_id, username, stars, is_banned, is_admin, created_at, updated_at
	`, telegramID, username, decimal.RequireFromString(stars)).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.Stars,
		&user.IsBanned,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	require.NoError(t, err)
	return &user
}

// StarsOf reads a user's current balance
func StarsOf(t *testing.T, db *database.DB, userID int64) decimal.Decimal {
	t.Helper()

	var stars decimal.Decimal
	err := db.QueryRow(context.Background(), `SELECT stars FROM users WHERE id = $1`, userID).Scan(&stars)
	require.NoError(t, err)
	return stars
}

// SetStars overwrites a user's balance, bypassing the ledger
func SetStars(t *testing.T, db *database.DB, userID int64, stars string) {
	t.Helper()

	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), `UPDATE users SET stars = $1 WHERE id = $2`, decimal.RequireFromString(stars), userID)
		return err
	})
	require.NoError(t, err)
}

// SetCommission stores the cube_commission setting
func SetCommission(t *testing.T, db *database.DB, percent string) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO game_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, models.SettingCubeCommission, decimal.RequireFromString(percent))
	require.NoError(t, err)
}
