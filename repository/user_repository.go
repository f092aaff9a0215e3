package repository

import (
	"context"
	"errors"
	"fmt"

	"cubeduel/database"
	"cubeduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const userColumns = `id, telegram_id, username, stars, is_banned, is_admin, created_at, updated_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.Stars,
		&user.IsBanned,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByTelegramID retrieves a user by their Telegram account ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID %d: %w", telegramID, err)
	}
	return user, nil
}

// GetByIDForUpdate retrieves a user and locks the row until the transaction ends
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

// Create inserts a new user. It returns nil without error when another
// request registered the same Telegram account first.
func (r *UserRepository) Create(ctx context.Context, telegramID int64, username string, initialStars decimal.Decimal) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, stars)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID, username, initialStars))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user with telegram ID %d: %w", telegramID, err)
	}
	return user, nil
}

// UpdateUsername refreshes the stored Telegram handle
func (r *UserRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	query := `UPDATE users SET username = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.Exec(ctx, query, username, id)
	if err != nil {
		return fmt.Errorf("failed to update username for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// AddStars adds to a user's balance atomically and returns the new balance
func (r *UserRepository) AddStars(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE users
		SET stars = stars + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING stars
	`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, models.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to add stars for user %d: %w", id, err)
	}
	return balance, nil
}

// DeductStars deducts from a user's balance atomically. The non-negative
// check constraint turns an overdraft into ErrInsufficientBalance.
func (r *UserRepository) DeductStars(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE users
		SET stars = stars - $1, updated_at = NOW()
		WHERE id = $2
		RETURNING stars
	`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, models.ErrUserNotFound
	}
	if isCheckViolation(err, "users_stars_non_negative") {
		return decimal.Zero, models.ErrInsufficientBalance
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to deduct stars for user %d: %w", id, err)
	}
	return balance, nil
}

// SetBanned flips the banned flag
func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	query := `UPDATE users SET is_banned = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.Exec(ctx, query, banned, id)
	if err != nil {
		return fmt.Errorf("failed to update ban flag for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
