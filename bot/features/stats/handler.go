package stats

import (
	"context"
	"fmt"

	"cubeduel/bot/common"
	"cubeduel/models"

	"gopkg.in/telebot.v3"
)

// HandleCubeStats handles the admin /cubestats command
func (f *Feature) HandleCubeStats(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil || !f.isAdmin(sender.ID) {
		return c.Send("❌ Команда доступна только администраторам.")
	}

	stats, err := f.statsService.GetCubeGameStats(context.Background())
	if err != nil {
		return common.HandleError(c, err, "Failed to load cube stats")
	}
	return c.Send(FormatCubeStats(stats))
}

// FormatCubeStats renders the aggregate duel statistics
func FormatCubeStats(stats *models.CubeGameStats) string {
	return fmt.Sprintf("🎲 <b>Кубики</b>\n\n"+
		"• Всего игр: <code>%d</code>\n"+
		"• Поставлено: <code>%s⭐</code>\n"+
		"• Выиграно: <code>%s⭐</code>\n"+
		"• Потеряно: <code>%s⭐</code>\n"+
		"• Комиссия бота: <code>%s⭐</code>\n"+
		"• Текущая комиссия: <b>%s</b>",
		stats.TotalGames,
		common.FormatStars(stats.TotalWagered),
		common.FormatStars(stats.TotalWon),
		common.FormatStars(stats.TotalLost),
		common.FormatStars(stats.BotCommission),
		common.FormatPercent(stats.CommissionPercent))
}
