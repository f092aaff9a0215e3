package service

import (
	"context"
	"fmt"

	"cubeduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// gameSettingsService implements the GameSettingsService interface
type gameSettingsService struct {
	uowFactory UnitOfWorkFactory
}

// NewGameSettingsService creates a new game settings service
func NewGameSettingsService(uowFactory UnitOfWorkFactory) GameSettingsService {
	return &gameSettingsService{
		uowFactory: uowFactory,
	}
}

// Get returns the stored value or ErrSettingNotFound
func (s *gameSettingsService) Get(ctx context.Context, key string) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	setting, err := uow.GameSettingsRepository().Get(ctx, key)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	if setting == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", models.ErrSettingNotFound, key)
	}
	return setting.Value, nil
}

// GetOrDefault returns the stored value, or fallback when absent
func (s *gameSettingsService) GetOrDefault(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return settingOrDefault(ctx, uow, key, fallback)
}

// Update stores a new value for the key
func (s *gameSettingsService) Update(ctx context.Context, key string, value decimal.Decimal) (*models.GameSetting, error) {
	if err := validateSetting(key, value); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	setting, err := uow.GameSettingsRepository().Upsert(ctx, key, value)
	if err != nil {
		return nil, fmt.Errorf("failed to update setting %q: %w", key, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"value": value.String(),
	}).Info("Updated game setting")

	return setting, nil
}

// List returns every stored setting
func (s *gameSettingsService) List(ctx context.Context) ([]*models.GameSetting, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.GameSettingsRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

// settingOrDefault reads a setting inside an already started unit of work
func settingOrDefault(ctx context.Context, uow UnitOfWork, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	setting, err := uow.GameSettingsRepository().Get(ctx, key)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	if setting == nil {
		return fallback, nil
	}
	return setting.Value, nil
}

func validateSetting(key string, value decimal.Decimal) error {
	switch key {
	case models.SettingCubeCommission:
		if value.IsNegative() || value.GreaterThan(hundred) {
			return fmt.Errorf("%w: commission must be between 0 and 100, got %s", models.ErrInvalidSetting, value)
		}
	}
	return nil
}
