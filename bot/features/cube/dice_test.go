package cube

import (
	"context"
	"errors"
	"testing"
	"time"

	"cubeduel/bot/bottest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func TestTelegramDice_Roll(t *testing.T) {
	sender := &bottest.Sender{DiceValue: 4}
	dice := NewTelegramDice(sender, &telebot.User{ID: 100}, nil, 0)

	value, err := dice.Roll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, value)
	require.Equal(t, 1, sender.Count())
	assert.Equal(t, "100", sender.Messages[0].ChatID)
}

func TestTelegramDice_SendFails(t *testing.T) {
	sender := &bottest.Sender{Err: errors.New("bot was blocked by the user")}

	_, err := NewTelegramDice(sender, &telebot.User{ID: 100}, nil, 0).Roll(context.Background())

	assert.Error(t, err)
}

func TestTelegramDice_PacingHonorsContext(t *testing.T) {
	sender := &bottest.Sender{DiceValue: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTelegramDice(sender, &telebot.User{ID: 100}, nil, time.Minute).Roll(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestTelegramDice_ForwardsToOpponent(t *testing.T) {
	sender := &bottest.Sender{DiceValue: 6}

	value, err := NewTelegramDice(sender, &telebot.User{ID: 100}, &telebot.User{ID: 200}, 0).Roll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6, value)
	assert.Equal(t, []string{"100", "200"}, sender.DiceChats())
	assert.False(t, sender.Messages[0].Forwarded)
	assert.True(t, sender.Messages[1].Forwarded)
}

func TestTelegramDice_ForwardFailureKeepsRoll(t *testing.T) {
	sender := &bottest.Sender{DiceValue: 3, ForwardErr: errors.New("chat not found")}

	value, err := NewTelegramDice(sender, &telebot.User{ID: 100}, &telebot.User{ID: 200}, 0).Roll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, value)
	assert.Equal(t, []string{"100"}, sender.DiceChats())
}
