package cube

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Sender delivers messages outside of an update; *telebot.Bot satisfies it
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Forward(to telebot.Recipient, msg telebot.Editable, opts ...interface{}) (*telebot.Message, error)
}

// TelegramDice rolls by sending Telegram's animated die into the player's
// chat and forwarding it to the opponent. The face is decided by Telegram,
// so both players watch the same value the engine records.
type TelegramDice struct {
	sender   Sender
	chat     telebot.Recipient
	opponent telebot.Recipient
	pacing   time.Duration
}

// NewTelegramDice creates a die that rolls in chat, shows it to opponent
// when known, and waits pacing for the animation
func NewTelegramDice(sender Sender, chat, opponent telebot.Recipient, pacing time.Duration) *TelegramDice {
	return &TelegramDice{sender: sender, chat: chat, opponent: opponent, pacing: pacing}
}

func (d *TelegramDice) Roll(ctx context.Context) (int, error) {
	msg, err := d.sender.Send(d.chat, telebot.Cube)
	if err != nil {
		return 0, fmt.Errorf("failed to send dice: %w", err)
	}
	if msg == nil || msg.Dice == nil {
		return 0, fmt.Errorf("telegram returned no dice value")
	}

	// The thrower's die already counts; a blocked opponent only misses the animation
	if d.opponent != nil {
		if _, err := d.sender.Forward(d.opponent, msg); err != nil {
			log.WithError(err).WithField("opponent", d.opponent.Recipient()).Warn("Failed to forward dice to opponent")
		}
	}

	if d.pacing > 0 {
		timer := time.NewTimer(d.pacing)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return msg.Dice.Value, nil
}
