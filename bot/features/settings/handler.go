package settings

import (
	"context"
	"fmt"

	"cubeduel/bot/common"
	"cubeduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// HandleCommission handles /commission [percent]. Without an argument it
// shows the commission in force.
func (f *Feature) HandleCommission(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil || !f.isAdmin(sender.ID) {
		return c.Send("❌ Команда доступна только администраторам.")
	}

	ctx := context.Background()
	args := c.Args()

	if len(args) == 0 {
		current, err := f.settingsService.GetOrDefault(ctx, models.SettingCubeCommission, f.defaultCommission)
		if err != nil {
			return common.HandleError(c, err, "Failed to read commission")
		}
		return c.Send(fmt.Sprintf("Текущая комиссия в кубиках: <b>%s</b>\nИзменить: /commission &lt;процент&gt;", common.FormatPercent(current)))
	}

	value, err := decimal.NewFromString(args[0])
	if err != nil {
		return common.HandleError(c, fmt.Errorf("%w: %q", models.ErrInvalidSetting, args[0]), "Malformed commission argument")
	}

	setting, err := f.settingsService.Update(ctx, models.SettingCubeCommission, value)
	if err != nil {
		return common.HandleError(c, err, "Failed to update commission")
	}

	log.WithFields(log.Fields{
		"admin_telegram_id": sender.ID,
		"commission":        setting.Value.String(),
	}).Info("Cube commission updated from chat")

	return c.Send(fmt.Sprintf("✅ Комиссия в кубиках: <b>%s</b>", common.FormatPercent(setting.Value)))
}
