package common

import (
	"fmt"
	"html"

	"cubeduel/models"

	"github.com/shopspring/decimal"
)

// BannedMessage is shown to banned users instead of any bot action
const BannedMessage = "❗Вы были заблокированы."

// FormatStars renders a balance or payout with two decimals
func FormatStars(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatWager renders a table wager the way it appears on lobby buttons
func FormatWager(wager decimal.Decimal) string {
	return wager.String()
}

// FormatSignedStars renders a balance change with an explicit sign
func FormatSignedStars(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + amount.Abs().StringFixed(2)
	}
	return "+" + amount.StringFixed(2)
}

// FormatPercent renders a commission percentage
func FormatPercent(percent decimal.Decimal) string {
	return percent.String() + "%"
}

// DisplayName returns an HTML-safe player name for chat messages
func DisplayName(user *models.User) string {
	if user == nil {
		return "Игрок"
	}
	if user.Username == "" {
		return fmt.Sprintf("Игрок %d", user.TelegramID)
	}
	return "@" + html.EscapeString(user.Username)
}
