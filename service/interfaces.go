package service

import (
	"context"
	"time"

	"cubeduel/events"
	"cubeduel/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by internal ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByTelegramID retrieves a user by their Telegram account ID
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// GetByIDForUpdate retrieves a user and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, telegramID int64, username string, initialStars decimal.Decimal) (*models.User, error)

	// UpdateUsername refreshes the stored Telegram handle
	UpdateUsername(ctx context.Context, id int64, username string) error

	// AddStars adds to a user's balance atomically and returns the new balance
	AddStars(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)

	// DeductStars deducts from a user's balance atomically, failing with
	// ErrInsufficientBalance rather than going negative
	DeductStars(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)

	// SetBanned flips the banned flag
	SetBanned(ctx context.Context, id int64, banned bool) error
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user, newest first
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)
}

// CubeMatchRepository defines the interface for duel table persistence.
// Every transition is conditional on the current status and fails with
// ErrInvalidTransition when the row has moved on.
type CubeMatchRepository interface {
	GetByID(ctx context.Context, id int64) (*models.CubeMatch, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.CubeMatch, error)

	// FindOpenTable locks the oldest waiting table at the wager not hosted by excludeUserID
	FindOpenTable(ctx context.Context, wager decimal.Decimal, excludeUserID int64) (*models.CubeMatch, error)

	OpenTable(ctx context.Context, playerID int64, wager decimal.Decimal) (*models.CubeMatch, error)
	SeatSecondPlayer(ctx context.Context, matchID int64, playerID int64) (*models.CubeMatch, error)

	// RecordThrow stores the host's value and hands the turn to the guest
	RecordThrow(ctx context.Context, matchID int64, turnNumber int, value int) (*models.CubeMatch, error)

	// ResetRound discards a tied round and hands the turn back to the host
	ResetRound(ctx context.Context, matchID int64, turnNumber int) (*models.CubeMatch, error)

	// RecordForfeit empties the leaving player's seat and reopens the table
	RecordForfeit(ctx context.Context, matchID int64, leavingPlayerID int64) (*models.CubeMatch, error)

	Finish(ctx context.Context, matchID int64, winnerID int64) error
	Cancel(ctx context.Context, matchID int64) error

	// ActiveMatchFor returns the waiting or in-progress match the user sits at
	ActiveMatchFor(ctx context.Context, userID int64) (*models.CubeMatch, error)

	// ListInProgress returns every match with both seats taken
	ListInProgress(ctx context.Context) ([]*models.CubeMatch, error)

	CountWaiting(ctx context.Context, wager decimal.Decimal) (int, error)
	CountActivePlayers(ctx context.Context, wager decimal.Decimal) (int, error)

	GetStats(ctx context.Context, commissionPercent decimal.Decimal) (*models.CubeGameStats, error)
	GetUserStats(ctx context.Context, userID int64) (*models.UserCubeStats, error)

	// DeleteCanceledBefore purges canceled tables created before the cutoff
	DeleteCanceledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GameSettingsRepository defines the interface for tunable game parameters
type GameSettingsRepository interface {
	// Get returns nil when the key is not stored
	Get(ctx context.Context, key string) (*models.GameSetting, error)
	Upsert(ctx context.Context, key string, value decimal.Decimal) (*models.GameSetting, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*models.GameSetting, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	CubeMatchRepository() CubeMatchRepository
	GameSettingsRepository() GameSettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UserService defines the interface for user operations
type UserService interface {
	// GetOrCreateUser retrieves an existing user or registers a new one with the starting balance
	GetOrCreateUser(ctx context.Context, telegramID int64, username string) (*models.User, error)

	// GetByTelegramID returns ErrUserNotFound for unknown accounts
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// GetByID returns ErrUserNotFound for unknown internal IDs
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// GetBalanceHistory returns the latest balance changes for a user
	GetBalanceHistory(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)

	// AdjustStars applies an administrative credit (positive) or debit (negative)
	AdjustStars(ctx context.Context, telegramID int64, delta decimal.Decimal, reason string) (*models.User, error)

	// SetBanned bans or unbans a user
	SetBanned(ctx context.Context, telegramID int64, banned bool) error
}

// GameSettingsService defines the interface for game settings operations
type GameSettingsService interface {
	// Get returns ErrSettingNotFound when the key is absent
	Get(ctx context.Context, key string) (decimal.Decimal, error)

	// GetOrDefault returns fallback when the key is absent
	GetOrDefault(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error)

	Update(ctx context.Context, key string, value decimal.Decimal) (*models.GameSetting, error)
	List(ctx context.Context) ([]*models.GameSetting, error)
}

// StatsService defines the interface for statistics operations
type StatsService interface {
	// GetCubeGameStats aggregates all finished duels with the current commission
	GetCubeGameStats(ctx context.Context) (*models.CubeGameStats, error)

	// GetUserStats returns one user's duel record
	GetUserStats(ctx context.Context, userID int64) (*models.UserCubeStats, error)
}

// CleanupService defines the interface for table hygiene
type CleanupService interface {
	// PurgeCanceledMatches deletes canceled tables older than the retention window
	PurgeCanceledMatches(ctx context.Context, retention time.Duration) (int64, error)
}

// CubeGameService defines the dice duel operations offered to the chat layer
type CubeGameService interface {
	// JoinOrCreateTable seats the user at the oldest open table for the wager or opens a new one
	JoinOrCreateTable(ctx context.Context, userID int64, wager decimal.Decimal) (*JoinResult, error)

	// SubmitThrow rolls for the player in the given seat and advances the duel
	SubmitThrow(ctx context.Context, matchID int64, seat models.Seat, userID int64, source RandomSource) (*TurnOutcome, error)

	// CancelTable closes a waiting table; only its sole host may do so
	CancelTable(ctx context.Context, matchID int64, userID int64) error

	// GetTableCounts returns waiting tables and seated players for a wager
	GetTableCounts(ctx context.Context, wager decimal.Decimal) (*models.TableCounts, error)

	// GetLobby returns counts for every configured wager tier
	GetLobby(ctx context.Context) ([]*models.TableCounts, error)

	GetMatch(ctx context.Context, matchID int64) (*models.CubeMatch, error)
	ActiveMatchFor(ctx context.Context, userID int64) (*models.CubeMatch, error)

	// HandleTurnTimeout forfeits the acting player if the turn is still theirs
	HandleTurnTimeout(ctx context.Context, timeout TurnTimeout) (*ForfeitResult, error)

	// RestoreTurnTimers arms a full deadline for every match left in progress by a restart
	RestoreTurnTimers(ctx context.Context) (int, error)

	// Shutdown cancels every pending turn timer
	Shutdown()
}

// ThrowGuard rejects a second throw for the same (match, seat) while one is in flight
type ThrowGuard interface {
	Acquire(ctx context.Context, matchID int64, seat models.Seat) (bool, error)
	Release(ctx context.Context, matchID int64, seat models.Seat) error
	Clear(ctx context.Context, matchID int64) error
}

// CooldownStore tracks the re-entry cooldown keyed by chat identity
type CooldownStore interface {
	Start(ctx context.Context, telegramID int64) error
	// Remaining returns zero when no cooldown is active
	Remaining(ctx context.Context, telegramID int64) (time.Duration, error)
}

// RandomSource produces one die face
type RandomSource interface {
	Roll(ctx context.Context) (int, error)
}

// TurnScheduler arms and cancels per-turn deadlines
type TurnScheduler interface {
	Arm(deadline time.Duration, timeout TurnTimeout, fire func(TurnTimeout)) *TurnTimer
	Cancel(timer *TurnTimer)
}
