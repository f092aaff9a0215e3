package service

import (
	"context"
	"fmt"

	"cubeduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// userService implements the UserService interface
type userService struct {
	uowFactory    UnitOfWorkFactory
	startingStars decimal.Decimal
}

// NewUserService creates a new user service. New accounts are credited startingStars.
func NewUserService(uowFactory UnitOfWorkFactory, startingStars decimal.Decimal) UserService {
	return &userService{
		uowFactory:    uowFactory,
		startingStars: startingStars,
	}
}

// GetOrCreateUser retrieves an existing user or creates a new one with initial balance
func (s *userService) GetOrCreateUser(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if user != nil {
		if username != "" && user.Username != username {
			if err := uow.UserRepository().UpdateUsername(ctx, user.ID, username); err != nil {
				return nil, fmt.Errorf("failed to update username: %w", err)
			}
			user.Username = username
			if err := uow.Commit(); err != nil {
				return nil, fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
		return user, nil
	}

	// Unique constraint on telegram_id resolves concurrent registrations;
	// the loser of the race gets nil back and re-reads.
	user, err = uow.UserRepository().Create(ctx, telegramID, username, s.startingStars)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if user == nil {
		user, err = uow.UserRepository().GetByTelegramID(ctx, telegramID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload user: %w", err)
		}
		if user == nil {
			return nil, models.ErrUserNotFound
		}
		return user, nil
	}

	if s.startingStars.IsPositive() {
		history := &models.BalanceHistory{
			UserID:          user.ID,
			BalanceBefore:   decimal.Zero,
			BalanceAfter:    s.startingStars,
			ChangeAmount:    s.startingStars,
			TransactionType: models.TransactionTypeInitial,
			TransactionMetadata: map[string]any{
				"telegram_id": telegramID,
				"username":    username,
			},
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, fmt.Errorf("failed to record initial balance: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":     user.ID,
		"telegram_id": telegramID,
		"username":    username,
	}).Info("Registered new user")

	return user, nil
}

// GetByTelegramID returns a user or ErrUserNotFound
func (s *userService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// GetByID returns a user by internal ID or ErrUserNotFound
func (s *userService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// GetBalanceHistory returns the latest balance changes for a user
func (s *userService) GetBalanceHistory(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.BalanceHistoryRepository().GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return history, nil
}

// AdjustStars applies an administrative correction
func (s *userService) AdjustStars(ctx context.Context, telegramID int64, delta decimal.Decimal, reason string) (*models.User, error) {
	if delta.IsZero() {
		return nil, fmt.Errorf("adjustment must be non-zero")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	entry := LedgerEntry{
		UserID:          user.ID,
		Amount:          delta.Abs(),
		TransactionType: models.TransactionTypeAdminAdjustment,
		Metadata:        map[string]any{"reason": reason},
	}

	var history *models.BalanceHistory
	if delta.IsPositive() {
		history, err = CreditStars(ctx, uow, entry)
	} else {
		history, err = DebitStars(ctx, uow, entry)
	}
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Stars = history.BalanceAfter

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"delta":   delta.String(),
		"reason":  reason,
		"balance": user.Stars.String(),
	}).Info("Applied admin star adjustment")

	return user, nil
}

// SetBanned bans or unbans a user
func (s *userService) SetBanned(ctx context.Context, telegramID int64, banned bool) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return models.ErrUserNotFound
	}

	if err := uow.UserRepository().SetBanned(ctx, user.ID, banned); err != nil {
		return fmt.Errorf("failed to update ban flag: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"banned":  banned,
	}).Info("Updated user ban flag")
	return nil
}
