package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cubeduel/database"
	"cubeduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const matchColumns = `id, player1_id, player2_id, winner_id, status, wager, current_turn, first_value, turn_number, created_at, updated_at`

var hundred = decimal.NewFromInt(100)

// CubeMatchRepository implements the CubeMatchRepository interface.
// Transitions are single conditional UPDATEs; an update that matches no row
// means another request moved the match first.
type CubeMatchRepository struct {
	q queryable
}

// NewCubeMatchRepository creates a new cube match repository
func NewCubeMatchRepository(db *database.DB) *CubeMatchRepository {
	return &CubeMatchRepository{q: db.Pool}
}

// newCubeMatchRepositoryWithTx creates a new cube match repository with a transaction
func newCubeMatchRepositoryWithTx(tx queryable) *CubeMatchRepository {
	return &CubeMatchRepository{q: tx}
}

func scanMatch(row pgx.Row) (*models.CubeMatch, error) {
	var match models.CubeMatch
	var firstValue *int16
	var turn int16
	err := row.Scan(
		&match.ID,
		&match.Player1ID,
		&match.Player2ID,
		&match.WinnerID,
		&match.Status,
		&match.Wager,
		&turn,
		&firstValue,
		&match.TurnNumber,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	match.CurrentTurn = models.Seat(turn)
	if firstValue != nil {
		v := int(*firstValue)
		match.FirstValue = &v
	}
	return &match, nil
}

func (r *CubeMatchRepository) queryMatch(ctx context.Context, op string, query string, args ...any) (*models.CubeMatch, error) {
	match, err := scanMatch(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return match, nil
}

func (r *CubeMatchRepository) queryMatches(ctx context.Context, op string, query string, args ...any) ([]*models.CubeMatch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var matches []*models.CubeMatch
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cube match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cube matches: %w", err)
	}
	return matches, nil
}

// transition runs a conditional UPDATE ... RETURNING and maps "no row" to ErrInvalidTransition
func (r *CubeMatchRepository) transition(ctx context.Context, op string, query string, args ...any) (*models.CubeMatch, error) {
	match, err := scanMatch(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidTransition, op)
	}
	if isUniqueViolation(err) {
		return nil, models.ErrAlreadyInMatch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return match, nil
}

// GetByID retrieves a match by ID
func (r *CubeMatchRepository) GetByID(ctx context.Context, id int64) (*models.CubeMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM cube_matches WHERE id = $1`
	return r.queryMatch(ctx, "get cube match", query, id)
}

// GetByIDForUpdate retrieves a match and locks the row until the transaction ends
func (r *CubeMatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.CubeMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM cube_matches WHERE id = $1 FOR UPDATE`
	return r.queryMatch(ctx, "lock cube match", query, id)
}

// FindOpenTable locks the oldest waiting table at exactly this wager.
// Tables locked by a concurrent joiner are skipped rather than waited on.
func (r *CubeMatchRepository) FindOpenTable(ctx context.Context, wager decimal.Decimal, excludeUserID int64) (*models.CubeMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM cube_matches
		WHERE status = 'waiting'
		  AND wager = $1
		  AND player2_id IS NULL
		  AND player1_id <> $2
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	return r.queryMatch(ctx, "find open table", query, wager, excludeUserID)
}

// OpenTable creates a waiting table hosted by playerID
func (r *CubeMatchRepository) OpenTable(ctx context.Context, playerID int64, wager decimal.Decimal) (*models.CubeMatch, error) {
	query := `
		INSERT INTO cube_matches (player1_id, wager, status)
		VALUES ($1, $2, 'waiting')
		RETURNING ` + matchColumns

	match, err := scanMatch(r.q.QueryRow(ctx, query, playerID, wager))
	if isUniqueViolation(err) {
		return nil, models.ErrAlreadyInMatch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table for user %d: %w", playerID, err)
	}
	return match, nil
}

// SeatSecondPlayer fills the guest seat and starts the duel with the host to throw
func (r *CubeMatchRepository) SeatSecondPlayer(ctx context.Context, matchID int64, playerID int64) (*models.CubeMatch, error) {
	query := `
		UPDATE cube_matches
		SET player2_id = $2,
		    status = 'in_progress',
		    current_turn = 1,
		    first_value = NULL,
		    turn_number = turn_number + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'waiting'
		  AND player2_id IS NULL
		  AND player1_id <> $2
		RETURNING ` + matchColumns
	return r.transition(ctx, "seat second player", query, matchID, playerID)
}

// RecordThrow stores the host's value and hands the turn to the guest
func (r *CubeMatchRepository) RecordThrow(ctx context.Context, matchID int64, turnNumber int, value int) (*models.CubeMatch, error) {
	query := `
		UPDATE cube_matches
		SET first_value = $3,
		    current_turn = 2,
		    turn_number = turn_number + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'in_progress'
		  AND current_turn = 1
		  AND turn_number = $2
		RETURNING ` + matchColumns
	return r.transition(ctx, "record throw", query, matchID, turnNumber, value)
}

// ResetRound discards a tied round and hands the turn back to the host
func (r *CubeMatchRepository) ResetRound(ctx context.Context, matchID int64, turnNumber int) (*models.CubeMatch, error) {
	query := `
		UPDATE cube_matches
		SET first_value = NULL,
		    current_turn = 1,
		    turn_number = turn_number + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'in_progress'
		  AND current_turn = 2
		  AND turn_number = $2
		RETURNING ` + matchColumns
	return r.transition(ctx, "reset round", query, matchID, turnNumber)
}

// RecordForfeit removes the leaving player and reopens the table. The
// remaining player always ends up in the host seat.
func (r *CubeMatchRepository) RecordForfeit(ctx context.Context, matchID int64, leavingPlayerID int64) (*models.CubeMatch, error) {
	query := `
		UPDATE cube_matches
		SET player1_id = CASE WHEN player1_id = $2 THEN player2_id ELSE player1_id END,
		    player2_id = NULL,
		    status = 'waiting',
		    current_turn = 0,
		    first_value = NULL,
		    turn_number = turn_number + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'in_progress'
		  AND (player1_id = $2 OR player2_id = $2)
		RETURNING ` + matchColumns
	return r.transition(ctx, "record forfeit", query, matchID, leavingPlayerID)
}

// Finish marks the match finished with the given winner
func (r *CubeMatchRepository) Finish(ctx context.Context, matchID int64, winnerID int64) error {
	query := `
		UPDATE cube_matches
		SET status = 'finished',
		    winner_id = $2,
		    current_turn = 0,
		    first_value = NULL,
		    turn_number = turn_number + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'in_progress'
		  AND (player1_id = $2 OR player2_id = $2)
	`

	result, err := r.q.Exec(ctx, query, matchID, winnerID)
	if err != nil {
		return fmt.Errorf("failed to finish match %d: %w", matchID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: finish match %d", models.ErrInvalidTransition, matchID)
	}
	return nil
}

// Cancel closes a waiting table that nobody has joined
func (r *CubeMatchRepository) Cancel(ctx context.Context, matchID int64) error {
	query := `
		UPDATE cube_matches
		SET status = 'canceled', updated_at = NOW()
		WHERE id = $1
		  AND status = 'waiting'
		  AND player2_id IS NULL
	`

	result, err := r.q.Exec(ctx, query, matchID)
	if err != nil {
		return fmt.Errorf("failed to cancel match %d: %w", matchID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: cancel match %d", models.ErrInvalidTransition, matchID)
	}
	return nil
}

// ActiveMatchFor returns the waiting or in-progress match the user sits at
func (r *CubeMatchRepository) ActiveMatchFor(ctx context.Context, userID int64) (*models.CubeMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM cube_matches
		WHERE status IN ('waiting', 'in_progress')
		  AND (player1_id = $1 OR player2_id = $1)
		ORDER BY id DESC
		LIMIT 1
	`
	return r.queryMatch(ctx, "get active match", query, userID)
}

// ListInProgress returns every match with both seats taken
func (r *CubeMatchRepository) ListInProgress(ctx context.Context) ([]*models.CubeMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM cube_matches
		WHERE status = 'in_progress'
		ORDER BY id
	`
	return r.queryMatches(ctx, "list in-progress matches", query)
}

// CountWaiting returns the number of open tables at the wager
func (r *CubeMatchRepository) CountWaiting(ctx context.Context, wager decimal.Decimal) (int, error) {
	query := `SELECT COUNT(*) FROM cube_matches WHERE status = 'waiting' AND wager = $1`

	var count int
	if err := r.q.QueryRow(ctx, query, wager).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count waiting tables: %w", err)
	}
	return count, nil
}

// CountActivePlayers returns the number of players in running duels at the wager
func (r *CubeMatchRepository) CountActivePlayers(ctx context.Context, wager decimal.Decimal) (int, error) {
	query := `SELECT COUNT(*) * 2 FROM cube_matches WHERE status = 'in_progress' AND wager = $1`

	var count int
	if err := r.q.QueryRow(ctx, query, wager).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active players: %w", err)
	}
	return count, nil
}

// GetStats aggregates finished duels. Winnings and commission are derived
// from the wager sum at the given commission percent.
func (r *CubeMatchRepository) GetStats(ctx context.Context, commissionPercent decimal.Decimal) (*models.CubeGameStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(wager), 0)
		FROM cube_matches
		WHERE status = 'finished'
	`

	stats := &models.CubeGameStats{CommissionPercent: commissionPercent}
	if err := r.q.QueryRow(ctx, query).Scan(&stats.TotalGames, &stats.TotalWagered); err != nil {
		return nil, fmt.Errorf("failed to get cube game stats: %w", err)
	}

	rate := commissionPercent.Div(hundred)
	stats.TotalLost = stats.TotalWagered
	stats.BotCommission = stats.TotalWagered.Mul(rate).Round(2)
	stats.TotalWon = stats.TotalWagered.Sub(stats.BotCommission)
	return stats, nil
}

// GetUserStats returns one user's duel record. Forfeits are counted from the
// ledger since the leaver no longer sits at the reopened table.
func (r *CubeMatchRepository) GetUserStats(ctx context.Context, userID int64) (*models.UserCubeStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM cube_matches
			  WHERE status = 'finished' AND (player1_id = $1 OR player2_id = $1)),
			(SELECT COUNT(*) FROM cube_matches
			  WHERE status = 'finished' AND winner_id = $1),
			(SELECT COUNT(*) FROM balance_history
			  WHERE user_id = $1 AND transaction_type = 'cube_forfeit'),
			(SELECT COALESCE(SUM(change_amount), 0) FROM balance_history
			  WHERE user_id = $1 AND related_type = 'cube_match')
	`

	stats := &models.UserCubeStats{UserID: userID}
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&stats.GamesPlayed,
		&stats.Wins,
		&stats.Forfeits,
		&stats.NetStars,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get cube stats for user %d: %w", userID, err)
	}
	stats.Losses = stats.GamesPlayed - stats.Wins
	return stats, nil
}

// DeleteCanceledBefore purges canceled tables created before the cutoff
func (r *CubeMatchRepository) DeleteCanceledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM cube_matches WHERE status = 'canceled' AND created_at < $1`

	result, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete canceled matches: %w", err)
	}
	return result.RowsAffected(), nil
}
