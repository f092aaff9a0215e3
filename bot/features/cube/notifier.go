package cube

import (
	"context"
	"fmt"
	"time"

	"cubeduel/bot/common"
	"cubeduel/events"
	"cubeduel/models"

	log "github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// UserLookup resolves internal user IDs to Telegram accounts
type UserLookup interface {
	GetByID(ctx context.Context, userID int64) (*models.User, error)
}

// Notifier tells both players what happened at their table. It renders the
// engine's committed events, so timeouts reach players the same way throws do.
type Notifier struct {
	sender      Sender
	users       UserLookup
	turnTimeout time.Duration
}

// NewNotifier creates a new match notifier
func NewNotifier(sender Sender, users UserLookup, turnTimeout time.Duration) *Notifier {
	return &Notifier{
		sender:      sender,
		users:       users,
		turnTimeout: turnTimeout,
	}
}

// Subscribe registers the notifier for every match event players see
func (n *Notifier) Subscribe(bus *events.Bus) {
	for _, eventType := range []events.EventType{
		events.EventTypeCubeMatchStarted,
		events.EventTypeCubeThrowRecorded,
		events.EventTypeCubeRoundTied,
		events.EventTypeCubeMatchSettled,
		events.EventTypeCubeMatchForfeited,
	} {
		bus.Subscribe(eventType, n.HandleEvent)
	}
}

// HandleEvent renders one match event to the players involved
func (n *Notifier) HandleEvent(ctx context.Context, event events.Event) {
	var err error
	switch e := event.(type) {
	case events.CubeMatchStartedEvent:
		err = n.matchStarted(ctx, e)
	case events.CubeThrowRecordedEvent:
		err = n.throwRecorded(ctx, e)
	case events.CubeRoundTiedEvent:
		err = n.roundTied(ctx, e)
	case events.CubeMatchSettledEvent:
		err = n.matchSettled(ctx, e)
	case events.CubeMatchForfeitedEvent:
		err = n.matchForfeited(ctx, e)
	default:
		return
	}

	if err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to notify players")
	}
}

func (n *Notifier) turnPrompt() string {
	return fmt.Sprintf("Ваш ход! На бросок %d сек.", int(n.turnTimeout.Seconds()))
}

func (n *Notifier) matchStarted(ctx context.Context, e events.CubeMatchStartedEvent) error {
	players, err := n.resolve(ctx, e.HostID, e.GuestID)
	if err != nil {
		return err
	}
	host, guest := players[e.HostID], players[e.GuestID]
	wager := common.FormatWager(e.Wager)

	n.send(host, fmt.Sprintf("🎲 Соперник найден: %s\nСтавка: %s ⭐\n\n%s",
		common.DisplayName(guest), wager, n.turnPrompt()), ThrowKeyboard(e.MatchID, models.SeatHost))
	n.send(guest, fmt.Sprintf("🎲 Вы сели за стол к %s\nСтавка: %s ⭐\n\nПервым бросает соперник.",
		common.DisplayName(host), wager), nil)
	return nil
}

func (n *Notifier) throwRecorded(ctx context.Context, e events.CubeThrowRecordedEvent) error {
	players, err := n.resolve(ctx, e.PlayerID, e.NextID)
	if err != nil {
		return err
	}
	thrower, next := players[e.PlayerID], players[e.NextID]

	n.send(thrower, fmt.Sprintf("🎲 Вам выпало %d. Ход соперника.", e.Value), nil)
	n.send(next, fmt.Sprintf("🎲 %s выбросил %d.\n\n%s",
		common.DisplayName(thrower), e.Value, n.turnPrompt()), ThrowKeyboard(e.MatchID, e.Seat.Other()))
	return nil
}

func (n *Notifier) roundTied(ctx context.Context, e events.CubeRoundTiedEvent) error {
	players, err := n.resolve(ctx, e.HostID, e.GuestID)
	if err != nil {
		return err
	}
	tie := fmt.Sprintf("🤝 Ничья! У обоих выпало %d. Переигровка.", e.Value)

	n.send(players[e.HostID], tie+"\n\n"+n.turnPrompt(), ThrowKeyboard(e.MatchID, models.SeatHost))
	n.send(players[e.GuestID], tie+"\n\nПервым снова бросает соперник.", nil)
	return nil
}

func (n *Notifier) matchSettled(ctx context.Context, e events.CubeMatchSettledEvent) error {
	players, err := n.resolve(ctx, e.WinnerID, e.LoserID)
	if err != nil {
		return err
	}
	high, low := e.HostValue, e.GuestValue
	if low > high {
		high, low = low, high
	}
	markup := EndGameKeyboard(e.Wager)

	n.send(players[e.WinnerID], fmt.Sprintf("🏆 Победа!\nВаш бросок: %d, соперник: %d\n\nВыигрыш: %s ⭐\nБаланс: %s ⭐",
		high, low, common.FormatSignedStars(e.Payout), common.FormatStars(e.WinnerBalance)), markup)
	n.send(players[e.LoserID], fmt.Sprintf("😔 Поражение.\nВаш бросок: %d, соперник: %d\n\nПроигрыш: %s ⭐\nБаланс: %s ⭐",
		low, high, common.FormatSignedStars(e.Stake.Neg()), common.FormatStars(e.LoserBalance)), markup)
	return nil
}

func (n *Notifier) matchForfeited(ctx context.Context, e events.CubeMatchForfeitedEvent) error {
	players, err := n.resolve(ctx, e.LeaverID, e.RemainingID)
	if err != nil {
		return err
	}

	leaverText := "⌛ Время на ход истекло, вы покинули стол."
	if e.Debited {
		leaverText += fmt.Sprintf("\nСписано %s ⭐", common.FormatStars(e.Wager))
	}
	n.send(players[e.LeaverID], leaverText, BackToLobbyKeyboard())
	n.send(players[e.RemainingID], fmt.Sprintf("⌛ Соперник не успел сделать ход и покинул стол.\n\n"+
		"Стол со ставкой %s ⭐ снова открыт. Ожидаем соперника...", common.FormatWager(e.Wager)), WaitingKeyboard(e.MatchID))
	return nil
}

func (n *Notifier) resolve(ctx context.Context, ids ...int64) (map[int64]*models.User, error) {
	players := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		user, err := n.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve player %d: %w", id, err)
		}
		players[id] = user
	}
	return players, nil
}

// send delivers to one player and only logs failures
func (n *Notifier) send(user *models.User, text string, markup *telebot.ReplyMarkup) {
	if user == nil {
		return
	}

	var err error
	if markup != nil {
		_, err = n.sender.Send(common.Recipient(user.TelegramID), text, markup)
	} else {
		_, err = n.sender.Send(common.Recipient(user.TelegramID), text)
	}
	if err != nil {
		log.WithError(err).WithField("telegram_id", user.TelegramID).Warn("Failed to deliver match notification")
	}
}
