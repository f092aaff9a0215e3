package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a Telegram user holding a stars balance
type User struct {
	ID         int64           `db:"id"`
	TelegramID int64           `db:"telegram_id"`
	Username   string          `db:"username"`
	Stars      decimal.Decimal `db:"stars"`
	IsBanned   bool            `db:"is_banned"`
	IsAdmin    bool            `db:"is_admin"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// CanCover reports whether the user's balance covers the given amount
func (u *User) CanCover(amount decimal.Decimal) bool {
	return u.Stars.GreaterThanOrEqual(amount)
}

// DisplayName returns the @handle used in chat messages
func (u *User) DisplayName() string {
	if u.Username == "" {
		return "Player"
	}
	return "@" + u.Username
}
