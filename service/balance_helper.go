package service

import (
	"context"
	"fmt"

	"cubeduel/events"
	"cubeduel/models"

	"github.com/shopspring/decimal"
)

// LedgerEntry describes one balance change to apply inside a unit of work
type LedgerEntry struct {
	UserID          int64
	Amount          decimal.Decimal
	TransactionType models.TransactionType
	Metadata        map[string]any
	RelatedID       *int64
	RelatedType     *models.RelatedType
}

// CreditStars adds stars to a user and records the change.
// The user row is locked for the rest of the transaction.
func CreditStars(ctx context.Context, uow UnitOfWork, entry LedgerEntry) (*models.BalanceHistory, error) {
	if !entry.Amount.IsPositive() {
		return nil, fmt.Errorf("credit amount must be positive, got %s", entry.Amount)
	}

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", entry.UserID, err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	newBalance, err := uow.UserRepository().AddStars(ctx, entry.UserID, entry.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to add stars: %w", err)
	}

	history := entry.history(user.Stars, newBalance, entry.Amount)
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}
	return history, nil
}

// DebitStars removes stars from a user and records the change. It fails with
// ErrInsufficientBalance without touching the balance when the user cannot cover it.
func DebitStars(ctx context.Context, uow UnitOfWork, entry LedgerEntry) (*models.BalanceHistory, error) {
	if !entry.Amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive, got %s", entry.Amount)
	}

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", entry.UserID, err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	if !user.CanCover(entry.Amount) {
		return nil, models.ErrInsufficientBalance
	}

	newBalance, err := uow.UserRepository().DeductStars(ctx, entry.UserID, entry.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct stars: %w", err)
	}

	history := entry.history(user.Stars, newBalance, entry.Amount.Neg())
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}
	return history, nil
}

func (e LedgerEntry) history(before, after, change decimal.Decimal) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:              e.UserID,
		BalanceBefore:       before,
		BalanceAfter:        after,
		ChangeAmount:        change,
		TransactionType:     e.TransactionType,
		TransactionMetadata: e.Metadata,
		RelatedID:           e.RelatedID,
		RelatedType:         e.RelatedType,
	}
}

// RecordBalanceChange records a balance history entry and emits appropriate events.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Flushed only after the transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          history.UserID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	if history.TransactionType == models.TransactionTypeInitial {
		telegramID, _ := history.TransactionMetadata["telegram_id"].(int64)
		username, _ := history.TransactionMetadata["username"].(string)
		uow.EventBus().Publish(events.UserCreatedEvent{
			UserID:         history.UserID,
			TelegramID:     telegramID,
			Username:       username,
			InitialBalance: history.BalanceAfter,
		})
	}

	return nil
}

func cubeMatchRelation(matchID int64) (*int64, *models.RelatedType) {
	relatedType := models.RelatedTypeCubeMatch
	return &matchID, &relatedType
}
