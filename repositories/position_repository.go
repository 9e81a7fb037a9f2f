package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Dosada05/pyramid-ladder/models"
)

var (
	ErrPositionNotFound       = errors.New("position not found")
	ErrSlotOccupied           = errors.New("slot is already occupied in this pyramid")
	ErrTeamAlreadyPositioned  = errors.New("team is already positioned in this pyramid")
	ErrSlotOutOfGrid          = errors.New("column must be between 1 and the row number")
	ErrPositionTeamInvalid    = errors.New("team does not exist")
	ErrPositionPyramidInvalid = errors.New("pyramid does not exist")
)

type PositionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, position *models.Position) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Position, error)
	GetByTeam(ctx context.Context, exec SQLExecutor, pyramidID, teamID int) (*models.Position, error)
	GetBySlot(ctx context.Context, exec SQLExecutor, pyramidID int, slot models.Slot) (*models.Position, error)
	ListByPyramid(ctx context.Context, exec SQLExecutor, pyramidID int) ([]*models.Position, error)
	ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.Position, error)
	// LockByTeams loads the teams' positions with SELECT ... FOR UPDATE, ordered by id.
	LockByTeams(ctx context.Context, exec SQLExecutor, pyramidID int, teamIDs ...int) ([]*models.Position, error)
	// ReplaceTeam puts teamID into the position and resets its counters.
	ReplaceTeam(ctx context.Context, exec SQLExecutor, positionID, teamID int) error
	Move(ctx context.Context, exec SQLExecutor, positionID int, slot models.Slot) error
	// Exchange swaps the coordinates of two positions in one statement.
	Exchange(ctx context.Context, exec SQLExecutor, positionA, positionB int) error
	RecordResult(ctx context.Context, exec SQLExecutor, positionID int, outcome models.Outcome) error
	MarkRisky(ctx context.Context, exec SQLExecutor, positionIDs []int) (int, error)
	MaxOccupiedRow(ctx context.Context, exec SQLExecutor, pyramidID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresPositionRepository struct {
	db *sql.DB
}

func NewPostgresPositionRepository(db *sql.DB) PositionRepository {
	return &postgresPositionRepository{db: db}
}

func (r *postgresPositionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const positionColumns = `id, pyramid_id, team_id, row_position, col_position, wins, losses,
	losing_streak, status, last_result, defendable, created_at, updated_at`

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	err := row.Scan(
		&p.ID,
		&p.PyramidID,
		&p.TeamID,
		&p.Row,
		&p.Col,
		&p.Wins,
		&p.Losses,
		&p.LosingStreak,
		&p.Status,
		&p.LastResult,
		&p.Defendable,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresPositionRepository) queryOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Position, error) {
	position, err := scanPosition(r.getExecutor(exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	return position, nil
}

func (r *postgresPositionRepository) queryMany(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Position, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make([]*models.Position, 0)
	for rows.Next() {
		position, scanErr := scanPosition(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

func (r *postgresPositionRepository) Create(ctx context.Context, exec SQLExecutor, position *models.Position) error {
	query := `
		INSERT INTO positions (pyramid_id, team_id, row_position, col_position, status, last_result, defendable)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, wins, losses, losing_streak, created_at, updated_at`

	if position.Status == "" {
		position.Status = models.TeamStatusIdle
	}
	if position.LastResult == "" {
		position.LastResult = models.LastResultNone
	}

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		position.PyramidID,
		position.TeamID,
		position.Row,
		position.Col,
		position.Status,
		position.LastResult,
		position.Defendable,
	).Scan(&position.ID, &position.Wins, &position.Losses, &position.LosingStreak, &position.CreatedAt, &position.UpdatedAt)
	return r.handlePositionError(err)
}

func (r *postgresPositionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Position, error) {
	return r.queryOne(ctx, exec, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)
}

func (r *postgresPositionRepository) GetByTeam(ctx context.Context, exec SQLExecutor, pyramidID, teamID int) (*models.Position, error) {
	return r.queryOne(ctx, exec,
		`SELECT `+positionColumns+` FROM positions WHERE pyramid_id = $1 AND team_id = $2`,
		pyramidID, teamID)
}

func (r *postgresPositionRepository) GetBySlot(ctx context.Context, exec SQLExecutor, pyramidID int, slot models.Slot) (*models.Position, error) {
	return r.queryOne(ctx, exec,
		`SELECT `+positionColumns+` FROM positions WHERE pyramid_id = $1 AND row_position = $2 AND col_position = $3`,
		pyramidID, slot.Row, slot.Col)
}

func (r *postgresPositionRepository) ListByPyramid(ctx context.Context, exec SQLExecutor, pyramidID int) ([]*models.Position, error) {
	return r.queryMany(ctx, exec,
		`SELECT `+positionColumns+` FROM positions WHERE pyramid_id = $1 ORDER BY row_position, col_position`,
		pyramidID)
}

func (r *postgresPositionRepository) ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.Position, error) {
	return r.queryMany(ctx, exec,
		`SELECT `+positionColumns+` FROM positions WHERE team_id = $1 ORDER BY pyramid_id`,
		teamID)
}

func (r *postgresPositionRepository) LockByTeams(ctx context.Context, exec SQLExecutor, pyramidID int, teamIDs ...int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE pyramid_id = $1 AND team_id = ANY($2)
		ORDER BY id
		FOR UPDATE`
	return r.queryMany(ctx, exec, query, pyramidID, pq.Array(int64s(teamIDs)))
}

func (r *postgresPositionRepository) ReplaceTeam(ctx context.Context, exec SQLExecutor, positionID, teamID int) error {
	query := `
		UPDATE positions
		SET team_id = $1, wins = 0, losses = 0, losing_streak = 0,
		    status = 'idle', last_result = 'none', defendable = TRUE, updated_at = NOW()
		WHERE id = $2`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, teamID, positionID)
	if err != nil {
		return r.handlePositionError(err)
	}
	return checkAffectedRows(result, ErrPositionNotFound)
}

func (r *postgresPositionRepository) Move(ctx context.Context, exec SQLExecutor, positionID int, slot models.Slot) error {
	query := `UPDATE positions SET row_position = $1, col_position = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, slot.Row, slot.Col, positionID)
	if err != nil {
		return r.handlePositionError(err)
	}
	return checkAffectedRows(result, ErrPositionNotFound)
}

// Exchange relies on positions_pyramid_slot_key being DEFERRABLE: the unique check
// runs once the statement has updated both rows.
func (r *postgresPositionRepository) Exchange(ctx context.Context, exec SQLExecutor, positionA, positionB int) error {
	if positionA == positionB {
		return fmt.Errorf("cannot exchange position %d with itself", positionA)
	}
	query := `
		UPDATE positions AS p
		SET row_position = o.row_position, col_position = o.col_position, updated_at = NOW()
		FROM positions AS o
		WHERE p.id IN ($1, $2) AND o.id IN ($1, $2) AND o.id <> p.id AND o.pyramid_id = p.pyramid_id`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, positionA, positionB)
	if err != nil {
		return r.handlePositionError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected != 2 {
		return ErrPositionNotFound
	}
	return nil
}

func (r *postgresPositionRepository) RecordResult(ctx context.Context, exec SQLExecutor, positionID int, outcome models.Outcome) error {
	query := `
		UPDATE positions
		SET wins = wins + CASE WHEN $1::boolean THEN 1 ELSE 0 END,
		    losses = losses + CASE WHEN $1::boolean THEN 0 ELSE 1 END,
		    losing_streak = CASE WHEN $1::boolean THEN 0 ELSE losing_streak + 1 END,
		    status = CASE WHEN $1::boolean THEN 'winner' ELSE 'looser' END,
		    last_result = $2,
		    updated_at = NOW()
		WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, outcome.Won, outcome.LastResult, positionID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPositionNotFound)
}

// MarkRisky flags the positions in one statement and returns how many rows changed.
func (r *postgresPositionRepository) MarkRisky(ctx context.Context, exec SQLExecutor, positionIDs []int) (int, error) {
	if len(positionIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE positions SET status = 'risky', updated_at = NOW() WHERE id = ANY($1)`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, pq.Array(int64s(positionIDs)))
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}

// MaxOccupiedRow returns the lowest occupied row of the pyramid, 0 when it is empty.
func (r *postgresPositionRepository) MaxOccupiedRow(ctx context.Context, exec SQLExecutor, pyramidID int) (int, error) {
	var maxRow int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_position), 0) FROM positions WHERE pyramid_id = $1`, pyramidID,
	).Scan(&maxRow)
	return maxRow, err
}

func (r *postgresPositionRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPositionNotFound)
}

func (r *postgresPositionRepository) handlePositionError(err error) error {
	if err == nil {
		return nil
	}
	pqErr, ok := asPQError(err)
	if !ok {
		return err
	}
	switch pqErr.Code {
	case pgUniqueViolation:
		switch pqErr.Constraint {
		case "positions_pyramid_slot_key":
			return ErrSlotOccupied
		case "positions_pyramid_team_key":
			return ErrTeamAlreadyPositioned
		}
	case pgCheckViolation:
		if pqErr.Constraint == "chk_position_slot" {
			return ErrSlotOutOfGrid
		}
	case pgForeignKeyViolation:
		switch {
		case strings.HasSuffix(pqErr.Constraint, "team_id_fkey"):
			return ErrPositionTeamInvalid
		case strings.HasSuffix(pqErr.Constraint, "pyramid_id_fkey"):
			return ErrPositionPyramidInvalid
		}
	}
	return err
}
