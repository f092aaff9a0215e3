package bot

import (
	"context"
	"errors"
	"strings"

	"cubeduel/bot/common"
	"cubeduel/bot/features/cube"
	"cubeduel/models"

	"gopkg.in/telebot.v3"
)

const finishGameFirst = "🎲 Сначала завершите текущую игру."

// Buttons that stay usable while the player sits at a table. Joining is
// rejected by the engine itself when the player already has a match.
var allowedWhilePlaying = []string{cube.ThrowPrefix, cube.BetPrefix}

// loadUser attaches the registered user, if any, to the update
func (b *Bot) loadUser(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		user, err := b.userService.GetByTelegramID(context.Background(), sender.ID)
		if errors.Is(err, models.ErrUserNotFound) {
			return next(c)
		}
		if err != nil {
			return common.HandleError(c, err, "Failed to load user for update")
		}
		c.Set(common.UserKey, user)
		return next(c)
	}
}

// rejectBanned stops every update from a banned user
func (b *Bot) rejectBanned(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		user := common.StoredUser(c)
		if user == nil || !user.IsBanned {
			return next(c)
		}
		if c.Callback() != nil {
			return c.Respond(&telebot.CallbackResponse{Text: common.BannedMessage, ShowAlert: true})
		}
		return c.Send(common.BannedMessage)
	}
}

// blockWhilePlaying keeps a seated player inside the duel flow
func (b *Bot) blockWhilePlaying(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		user := common.StoredUser(c)
		if user == nil {
			return next(c)
		}

		data, isCallback := "", c.Callback() != nil
		if isCallback {
			data = c.Callback().Data
			if hasAnyPrefix(data, allowedWhilePlaying) {
				return next(c)
			}
		}

		match, err := b.cubeGame.ActiveMatchFor(context.Background(), user.ID)
		if err != nil {
			return common.HandleError(c, err, "Failed to check active match")
		}
		if allowedDuringMatch(match, data, isCallback) {
			return next(c)
		}

		if isCallback {
			return c.Respond(&telebot.CallbackResponse{Text: finishGameFirst, ShowAlert: true})
		}
		return c.Send(finishGameFirst)
	}
}

// allowedDuringMatch decides whether an update may proceed given the
// player's open match. A waiting host may still leave the table.
func allowedDuringMatch(match *models.CubeMatch, callbackData string, isCallback bool) bool {
	if match == nil {
		return true
	}
	if !isCallback {
		return false
	}
	if hasAnyPrefix(callbackData, allowedWhilePlaying) {
		return true
	}
	if strings.HasPrefix(callbackData, cube.CancelPrefix) {
		return match.Status == models.MatchStatusWaiting
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
