package service

import (
	"context"
	"fmt"

	"cubeduel/models"

	"github.com/shopspring/decimal"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory        UnitOfWorkFactory
	defaultCommission decimal.Decimal
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory, defaultCommission decimal.Decimal) StatsService {
	return &statsService{
		uowFactory:        uowFactory,
		defaultCommission: defaultCommission,
	}
}

// GetCubeGameStats aggregates finished duels. Winnings and the house cut are
// derived from the wager sum at the commission in force now.
func (s *statsService) GetCubeGameStats(ctx context.Context) (*models.CubeGameStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	commission, err := settingOrDefault(ctx, uow, models.SettingCubeCommission, s.defaultCommission)
	if err != nil {
		return nil, err
	}

	stats, err := uow.CubeMatchRepository().GetStats(ctx, commission)
	if err != nil {
		return nil, fmt.Errorf("failed to get cube game stats: %w", err)
	}
	return stats, nil
}

// GetUserStats returns one user's duel record
func (s *statsService) GetUserStats(ctx context.Context, userID int64) (*models.UserCubeStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stats, err := uow.CubeMatchRepository().GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}
