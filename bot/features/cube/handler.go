package cube

import (
	"context"
	"fmt"
	"strings"

	"cubeduel/bot/common"
	"cubeduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func (f *Feature) lobbyText() string {
	return fmt.Sprintf("🎲 <b>Кубики</b>\n\n"+
		"Выберите ставку. Игроки по очереди бросают кубик, больше очков забирает банк.\n"+
		"На каждый бросок даётся %d сек.\n\n"+
		"⏳ столы в ожидании, 🎮 игроки в игре", int(f.config.TurnTimeout.Seconds()))
}

func (f *Feature) showLobby(c telebot.Context, edit bool) error {
	ctx := context.Background()

	lobby, err := f.cubeGame.GetLobby(ctx)
	if err != nil {
		return common.HandleError(c, err, "Failed to load cube lobby")
	}

	markup := LobbyKeyboard(lobby)
	if edit {
		err := c.Edit(f.lobbyText(), markup)
		if isNotModified(err) {
			return nil
		}
		return err
	}
	return c.Send(f.lobbyText(), markup)
}

func (f *Feature) handleBet(c telebot.Context, data string) error {
	ctx := context.Background()

	wager, err := ParseBetData(data)
	if err != nil {
		return common.HandleError(c, err, "Malformed bet callback")
	}
	if !f.offersWager(wager) {
		return common.HandleError(c, fmt.Errorf("%w: %s", models.ErrInvalidWager, wager), "Bet on unknown table tier")
	}

	user, err := common.CurrentUser(ctx, c, f.userService)
	if err != nil {
		return common.HandleError(c, err, "Failed to resolve player")
	}

	result, err := f.cubeGame.JoinOrCreateTable(ctx, user.ID, wager)
	if err != nil {
		return common.HandleError(c, err, "Failed to join cube table")
	}

	log.WithFields(log.Fields{
		"user_id":  user.ID,
		"match_id": result.Match.ID,
		"role":     result.Role,
		"wager":    wager.String(),
	}).Info("Player took a seat")

	if err := c.Respond(); err != nil {
		return err
	}
	if result.Role == models.RoleHost {
		return c.Edit(waitingText(wager), WaitingKeyboard(result.Match.ID))
	}
	return c.Edit(fmt.Sprintf("🎲 Стол со ставкой %s ⭐ найден!", common.FormatWager(wager)))
}

func (f *Feature) handleThrow(c telebot.Context, data string) error {
	ctx := context.Background()

	matchID, seat, err := ParseThrowData(data)
	if err != nil {
		return common.HandleError(c, common.NewUserError("Кнопка устарела.", err.Error()), "Malformed throw callback")
	}

	user, err := common.CurrentUser(ctx, c, f.userService)
	if err != nil {
		return common.HandleError(c, err, "Failed to resolve player")
	}

	match, err := f.cubeGame.GetMatch(ctx, matchID)
	if err != nil {
		return common.HandleError(c, err, "Failed to load cube match")
	}
	if match == nil {
		return common.HandleError(c, models.ErrMatchNotFound, "Throw on unknown match")
	}

	f.removeKeyboard(c)

	dice := NewTelegramDice(f.sender, common.Recipient(user.TelegramID), f.opponentChat(ctx, match, user.ID), f.config.ThrowPacing)
	outcome, err := f.cubeGame.SubmitThrow(ctx, matchID, seat, user.ID, dice)
	if err != nil {
		// The turn is still open after a system failure, so the player needs the button back
		if !common.FromServiceError(err, "").Benign {
			if editErr := c.Edit(ThrowKeyboard(matchID, seat)); editErr != nil && !isNotModified(editErr) {
				log.WithError(editErr).WithField("match_id", matchID).Warn("Failed to restore throw button")
			}
		}
		return common.HandleError(c, err, "Throw rejected")
	}

	log.WithFields(log.Fields{
		"match_id": matchID,
		"seat":     seat,
		"value":    outcome.Value,
		"outcome":  outcome.Kind,
	}).Debug("Throw accepted")

	// Players get the result through the match notifications
	return c.Respond()
}

func (f *Feature) handleCancel(c telebot.Context, data string) error {
	ctx := context.Background()

	matchID, err := ParseCancelData(data)
	if err != nil {
		return common.HandleError(c, common.NewUserError("Кнопка устарела.", err.Error()), "Malformed cancel callback")
	}

	user, err := common.CurrentUser(ctx, c, f.userService)
	if err != nil {
		return common.HandleError(c, err, "Failed to resolve player")
	}

	if err := f.cubeGame.CancelTable(ctx, matchID, user.ID); err != nil {
		return common.HandleError(c, err, "Failed to leave cube table")
	}

	if err := c.Respond(&telebot.CallbackResponse{Text: "Вы покинули стол"}); err != nil {
		return err
	}
	return f.showLobby(c, true)
}

func waitingText(wager decimal.Decimal) string {
	return fmt.Sprintf("🎲 Вы открыли стол со ставкой %s ⭐\n\nОжидаем соперника...", common.FormatWager(wager))
}

// removeKeyboard strips the inline keyboard from the pressed message
func (f *Feature) removeKeyboard(c telebot.Context) {
	if c.Message() == nil {
		return
	}
	if err := c.Edit(&telebot.ReplyMarkup{}); err != nil && !isNotModified(err) {
		log.WithError(err).Debug("Failed to remove throw button")
	}
}

// opponentChat returns the chat that watches this throw, or nil when the
// seat is empty or the opponent cannot be resolved
func (f *Feature) opponentChat(ctx context.Context, match *models.CubeMatch, userID int64) telebot.Recipient {
	opponentID := match.OpponentOf(userID)
	if opponentID == 0 {
		return nil
	}
	opponent, err := f.userService.GetByID(ctx, opponentID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"match_id":    match.ID,
			"opponent_id": opponentID,
		}).Warn("Failed to resolve opponent for dice forward")
		return nil
	}
	return common.Recipient(opponent.TelegramID)
}

// isNotModified matches Telegram's rejection of an edit that changes nothing
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
