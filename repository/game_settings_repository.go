package repository

import (
	"context"
	"errors"
	"fmt"

	"cubeduel/database"
	"cubeduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// GameSettingsRepository implements the GameSettingsRepository interface
type GameSettingsRepository struct {
	q queryable
}

// NewGameSettingsRepository creates a new game settings repository
func NewGameSettingsRepository(db *database.DB) *GameSettingsRepository {
	return &GameSettingsRepository{q: db.Pool}
}

// newGameSettingsRepositoryWithTx creates a new game settings repository with a transaction
func newGameSettingsRepositoryWithTx(tx queryable) *GameSettingsRepository {
	return &GameSettingsRepository{q: tx}
}

// Get returns nil when the key is not stored
func (r *GameSettingsRepository) Get(ctx context.Context, key string) (*models.GameSetting, error) {
	query := `SELECT key, value, updated_at FROM game_settings WHERE key = $1`

	var setting models.GameSetting
	err := r.q.QueryRow(ctx, query, key).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game setting %q: %w", key, err)
	}
	return &setting, nil
}

// Upsert creates or replaces the value for key
func (r *GameSettingsRepository) Upsert(ctx context.Context, key string, value decimal.Decimal) (*models.GameSetting, error) {
	query := `
		INSERT INTO game_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING key, value, updated_at
	`

	var setting models.GameSetting
	err := r.q.QueryRow(ctx, query, key, value).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert game setting %q: %w", key, err)
	}
	return &setting, nil
}

// Delete removes the key; deleting an absent key is not an error
func (r *GameSettingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM game_settings WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete game setting %q: %w", key, err)
	}
	return nil
}

// List returns every stored setting ordered by key
func (r *GameSettingsRepository) List(ctx context.Context) ([]*models.GameSetting, error) {
	rows, err := r.q.Query(ctx, `SELECT key, value, updated_at FROM game_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list game settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.GameSetting
	for rows.Next() {
		var setting models.GameSetting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game setting: %w", err)
		}
		settings = append(settings, &setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate game settings: %w", err)
	}
	return settings, nil
}
