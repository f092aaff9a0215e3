package balance

import (
	"context"
	"fmt"
	"strings"

	"cubeduel/bot/common"
	"cubeduel/models"

	"gopkg.in/telebot.v3"
)

const historyLimit = 5

var backButton = &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{
	{{Text: "🔙 Назад", Data: "main_menu"}},
}}

func (f *Feature) handleBalance(c telebot.Context, edit bool) error {
	ctx := context.Background()

	user, err := common.CurrentUser(ctx, c, f.userService)
	if err != nil {
		return common.HandleError(c, err, "Failed to resolve user for balance")
	}

	stats, err := f.statsService.GetUserStats(ctx, user.ID)
	if err != nil {
		return common.HandleError(c, err, "Failed to load duel record")
	}

	history, err := f.userService.GetBalanceHistory(ctx, user.ID, historyLimit)
	if err != nil {
		return common.HandleError(c, err, "Failed to load balance history")
	}

	message := FormatBalance(user, stats, history)
	if edit {
		return c.Edit(message, backButton)
	}
	return c.Send(message, backButton)
}

// FormatBalance renders the balance screen
func FormatBalance(user *models.User, stats *models.UserCubeStats, history []*models.BalanceHistory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Ваш баланс: <b>%s ⭐</b>\n", common.FormatStars(user.Stars))

	if stats != nil && stats.GamesPlayed > 0 {
		fmt.Fprintf(&b, "\n🎲 Кубики: %d игр, %d побед, %d поражений (%.0f%%)\n",
			stats.GamesPlayed, stats.Wins, stats.Losses, stats.WinRate())
		if stats.Forfeits > 0 {
			fmt.Fprintf(&b, "⌛ Пропущено ходов: %d\n", stats.Forfeits)
		}
		fmt.Fprintf(&b, "Итог: %s ⭐\n", common.FormatSignedStars(stats.NetStars))
	}

	if len(history) > 0 {
		b.WriteString("\nПоследние операции:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "• %s ⭐ %s\n", common.FormatSignedStars(h.ChangeAmount), transactionLabel(h.TransactionType))
		}
	}
	return b.String()
}

func transactionLabel(t models.TransactionType) string {
	switch t {
	case models.TransactionTypeInitial:
		return "стартовый бонус"
	case models.TransactionTypeCubeWin:
		return "победа в кубиках"
	case models.TransactionTypeCubeLoss:
		return "поражение в кубиках"
	case models.TransactionTypeCubeForfeit:
		return "пропуск хода"
	case models.TransactionTypeAdminAdjustment:
		return "корректировка"
	}
	return string(t)
}
