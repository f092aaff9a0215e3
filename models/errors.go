package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("invalid match transition")
	ErrAlreadyActing       = errors.New("throw already in progress for this turn")
	ErrSettingNotFound     = errors.New("game setting not found")
	ErrInvalidSetting      = errors.New("invalid game setting value")
	ErrMatchNotFound       = errors.New("match not found")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrAlreadyInMatch      = errors.New("user already has an active match")
	ErrTableInPlay         = errors.New("table can only be left while waiting for an opponent")
	ErrCooldown            = errors.New("rejoin cooldown active")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidWager        = errors.New("invalid wager")
	ErrUserBanned          = errors.New("user is banned")
)

// CooldownError reports how long a user must wait before joining a table again.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %d seconds remaining", ErrCooldown, e.RemainingSeconds())
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// RemainingSeconds rounds the remaining wait up to whole seconds.
func (e *CooldownError) RemainingSeconds() int {
	secs := int((e.Remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
