package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial         TransactionType = "initial"
	TransactionTypeCubeWin         TransactionType = "cube_win"
	TransactionTypeCubeLoss        TransactionType = "cube_loss"
	TransactionTypeCubeForfeit     TransactionType = "cube_forfeit"
	TransactionTypeAdminAdjustment TransactionType = "admin_adjustment"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeCubeMatch RelatedType = "cube_match"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
