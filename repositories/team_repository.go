package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
)

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrPlayerAlreadyInTeam = errors.New("player already belongs to a team")
	ErrTeamSamePlayer      = errors.New("a team needs two different players")
	ErrTeamPlayerInvalid   = errors.New("player does not exist")
	ErrTeamCategoryInvalid = errors.New("category does not exist")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetByPlayer(ctx context.Context, exec SQLExecutor, userID int) (*models.Team, error)
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Team, error)
	// ListPositioned returns the teams holding a position in the pyramid.
	ListPositioned(ctx context.Context, exec SQLExecutor, pyramidID int) ([]*models.Team, error)
	// ListEligible returns teams whose category is linked to the pyramid, with totals
	// over every pyramid they play in. unplacedOnly drops teams already in the pyramid.
	ListEligible(ctx context.Context, exec SQLExecutor, pyramidID int, unplacedOnly bool) ([]*models.EligibleTeam, error)
	RecordResult(ctx context.Context, exec SQLExecutor, teamID int, outcome models.Outcome) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// teamSelect is shared by every team query so scanTeamWithPlayers has one column order.
const teamSelect = `
	SELECT t.id, t.player1_id, t.player2_id, t.category_id, t.wins, t.losses, t.status,
	       t.losing_streak, t.last_result, t.created_at, t.updated_at,
	       c.id, c.name, c.level,
	       u1.id, u1.paternal_surname, u1.maternal_surname, u1.nickname, u1.email, u1.role, u1.created_at,
	       u2.id, u2.paternal_surname, u2.maternal_surname, u2.nickname, u2.email, u2.role, u2.created_at`

const teamJoins = `
	FROM teams t
	JOIN categories c ON c.id = t.category_id
	LEFT JOIN users u1 ON u1.id = t.player1_id
	LEFT JOIN users u2 ON u2.id = t.player2_id`

// scanTeamWithPlayers maps one teamSelect row, plus any extra trailing columns, to a
// team with its category, players and display name.
func scanTeamWithPlayers(row rowScanner, extra ...interface{}) (*models.Team, error) {
	var (
		t         models.Team
		c         models.Category
		p1, p2    nullPlayer
		player1ID sql.NullInt64
		player2ID sql.NullInt64
	)
	dest := []interface{}{
		&t.ID, &player1ID, &player2ID, &t.CategoryID, &t.Wins, &t.Losses, &t.Status,
		&t.LosingStreak, &t.LastResult, &t.CreatedAt, &t.UpdatedAt,
		&c.ID, &c.Name, &c.Level,
	}
	dest = append(dest, p1.dest()...)
	dest = append(dest, p2.dest()...)
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if player1ID.Valid {
		id := int(player1ID.Int64)
		t.Player1ID = &id
	}
	if player2ID.Valid {
		id := int(player2ID.Int64)
		t.Player2ID = &id
	}
	t.Category = &c
	t.Player1 = p1.toPlayer()
	t.Player2 = p2.toPlayer()
	t.DisplayName = ladder.DisplayName(t.Player1, t.Player2)
	return &t, nil
}

func (r *postgresTeamRepository) queryMany(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, scanErr := scanTeamWithPlayers(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (player1_id, player2_id, category_id)
		VALUES ($1, $2, $3)
		RETURNING id, wins, losses, status, losing_streak, last_result, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, team.Player1ID, team.Player2ID, team.CategoryID).Scan(
		&team.ID, &team.Wins, &team.Losses, &team.Status, &team.LosingStreak, &team.LastResult,
		&team.CreatedAt, &team.UpdatedAt,
	)
	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := teamSelect + teamJoins + ` WHERE t.id = $1`

	team, err := scanTeamWithPlayers(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) GetByPlayer(ctx context.Context, exec SQLExecutor, userID int) (*models.Team, error) {
	query := teamSelect + teamJoins + ` WHERE t.player1_id = $1 OR t.player2_id = $1 ORDER BY t.id LIMIT 1`

	team, err := scanTeamWithPlayers(r.getExecutor(exec).QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Team, error) {
	if len(ids) == 0 {
		return []*models.Team{}, nil
	}
	return r.queryMany(ctx, exec, teamSelect+teamJoins+` WHERE t.id = ANY($1) ORDER BY t.id`, pq.Array(int64s(ids)))
}

func (r *postgresTeamRepository) ListPositioned(ctx context.Context, exec SQLExecutor, pyramidID int) ([]*models.Team, error) {
	query := teamSelect + teamJoins + `
	JOIN positions p ON p.team_id = t.id AND p.pyramid_id = $1
	ORDER BY p.row_position, p.col_position`
	return r.queryMany(ctx, exec, query, pyramidID)
}

func (r *postgresTeamRepository) ListEligible(ctx context.Context, exec SQLExecutor, pyramidID int, unplacedOnly bool) ([]*models.EligibleTeam, error) {
	query := teamSelect + `,
	       COALESCE(agg.wins, 0), COALESCE(agg.losses, 0), COALESCE(agg.max_streak, 0)` + teamJoins + `
	JOIN pyramid_categories pc ON pc.category_id = t.category_id AND pc.pyramid_id = $1
	LEFT JOIN (
		SELECT team_id, SUM(wins) AS wins, SUM(losses) AS losses, MAX(losing_streak) AS max_streak
		FROM positions
		GROUP BY team_id
	) agg ON agg.team_id = t.id
	WHERE ($2 = FALSE OR NOT EXISTS (
		SELECT 1 FROM positions p WHERE p.pyramid_id = $1 AND p.team_id = t.id
	))
	ORDER BY t.id`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pyramidID, unplacedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	eligible := make([]*models.EligibleTeam, 0)
	for rows.Next() {
		var e models.EligibleTeam
		team, scanErr := scanTeamWithPlayers(rows, &e.TotalWins, &e.TotalLosses, &e.MaxLosingStreak)
		if scanErr != nil {
			return nil, scanErr
		}
		e.Team = team
		e.Score = e.TotalWins - e.TotalLosses
		eligible = append(eligible, &e)
	}
	return eligible, rows.Err()
}

func (r *postgresTeamRepository) RecordResult(ctx context.Context, exec SQLExecutor, teamID int, outcome models.Outcome) error {
	query := `
		UPDATE teams
		SET wins = wins + CASE WHEN $1::boolean THEN 1 ELSE 0 END,
		    losses = losses + CASE WHEN $1::boolean THEN 0 ELSE 1 END,
		    losing_streak = CASE WHEN $1::boolean THEN 0 ELSE losing_streak + 1 END,
		    status = CASE WHEN $1::boolean THEN 'winner' ELSE 'looser' END,
		    last_result = $2,
		    updated_at = NOW()
		WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, outcome.Won, outcome.LastResult, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	pqErr, ok := asPQError(err)
	if !ok {
		return err
	}
	switch pqErr.Code {
	case pgUniqueViolation:
		if pqErr.Constraint == "teams_player1_id_key" || pqErr.Constraint == "teams_player2_id_key" {
			return ErrPlayerAlreadyInTeam
		}
	case pgCheckViolation:
		if pqErr.Constraint == "chk_team_distinct_players" {
			return ErrTeamSamePlayer
		}
	case pgForeignKeyViolation:
		switch {
		case strings.HasSuffix(pqErr.Constraint, "category_id_fkey"):
			return ErrTeamCategoryInvalid
		case strings.Contains(pqErr.Constraint, "player"):
			return ErrTeamPlayerInvalid
		}
	}
	return err
}
