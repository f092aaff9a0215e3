package common

import (
	"errors"
	"fmt"

	"cubeduel/models"

	log "github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const genericFailure = "❌ Что-то пошло не так. Попробуйте позже."

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string      // Message shown to the Telegram user
	LogMessage  string      // Internal message for logging
	Benign      bool        // Stale buttons and user mistakes are not logged as errors
	Err         error       // Underlying error
	Context     interface{} // Additional context for logging
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for user-caused issues (validation, insufficient funds, etc)
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
		Benign:      true,
	}
}

// NewSystemError creates an error for system issues (database, unexpected state, etc)
func NewSystemError(err error, logMessage string) *BotError {
	return &BotError{
		UserMessage: genericFailure,
		LogMessage:  logMessage,
		Err:         err,
	}
}

// FromServiceError translates a service error into what the player sees
func FromServiceError(err error, logMessage string) *BotError {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr
	}

	var cooldown *models.CooldownError
	if errors.As(err, &cooldown) {
		return wrapUserError(err, logMessage,
			fmt.Sprintf("⏳ Подождите %d сек. перед тем как снова сесть за стол.", cooldown.RemainingSeconds()))
	}

	switch {
	case errors.Is(err, models.ErrInsufficientBalance):
		return wrapUserError(err, logMessage, "❌ Недостаточно звёзд для этой ставки.")
	case errors.Is(err, models.ErrAlreadyInMatch):
		return wrapUserError(err, logMessage, "🎲 Вы уже сидите за столом. Завершите текущую игру.")
	case errors.Is(err, models.ErrAlreadyActing):
		return wrapUserError(err, logMessage, "🎲 Кубик уже брошен, дождитесь результата.")
	case errors.Is(err, models.ErrNotYourTurn):
		return wrapUserError(err, logMessage, "⏳ Сейчас не ваш ход.")
	case errors.Is(err, models.ErrMatchNotFound):
		return wrapUserError(err, logMessage, "Эта игра уже завершена.")
	case errors.Is(err, models.ErrTableInPlay):
		return wrapUserError(err, logMessage, "🎲 Игра уже началась, покинуть стол нельзя.")
	case errors.Is(err, models.ErrInvalidTransition):
		return wrapUserError(err, logMessage, "Стол уже занят. Попробуйте ещё раз.")
	case errors.Is(err, models.ErrInvalidWager):
		return wrapUserError(err, logMessage, "❌ Такой ставки нет.")
	case errors.Is(err, models.ErrUserBanned):
		return wrapUserError(err, logMessage, BannedMessage)
	case errors.Is(err, models.ErrUserNotFound):
		return wrapUserError(err, logMessage, "Нажмите /start, чтобы начать.")
	case errors.Is(err, models.ErrInvalidSetting):
		return wrapUserError(err, logMessage, "❌ Некорректное значение.")
	}
	return NewSystemError(err, logMessage)
}

func wrapUserError(err error, logMessage, userMessage string) *BotError {
	botErr := NewUserError(userMessage, logMessage)
	botErr.Err = err
	return botErr
}

// HandleError logs err and tells the user what went wrong. Callback queries
// are answered with an alert so the button spinner stops.
func HandleError(c telebot.Context, err error, logMessage string) error {
	botErr := FromServiceError(err, logMessage)

	fields := log.Fields{
		"error":        botErr.Error(),
		"user_message": botErr.UserMessage,
		"context":      botErr.Context,
	}
	if sender := c.Sender(); sender != nil {
		fields["telegram_id"] = sender.ID
	}
	if cb := c.Callback(); cb != nil {
		fields["callback"] = cb.Data
	}

	if botErr.Benign {
		log.WithFields(fields).Info(botErr.LogMessage)
	} else {
		log.WithFields(fields).Error(botErr.LogMessage)
	}

	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: botErr.UserMessage, ShowAlert: true})
	}
	return c.Send(botErr.UserMessage)
}
