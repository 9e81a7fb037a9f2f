package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Dosada05/pyramid-ladder/models"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchStatusConflict = errors.New("match status changed concurrently")
	ErrMatchTeamsInvalid   = errors.New("match teams conflict or invalid")
	ErrMatchWinnerInvalid  = errors.New("winner must be one of the match teams")
	ErrMatchPyramidInvalid = errors.New("match pyramid does not exist")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Match, error)
	// ListByPyramid returns the pyramid's matches, newest first; no statuses means all.
	ListByPyramid(ctx context.Context, exec SQLExecutor, pyramidID int, statuses ...models.MatchStatus) ([]*models.Match, error)
	// ListPendingAgainst returns pending challenges against defenderTeamID other than exceptMatchID.
	ListPendingAgainst(ctx context.Context, exec SQLExecutor, pyramidID, defenderTeamID, exceptMatchID int) ([]*models.Match, error)
	// UpdateStatus moves the match from one status to another; ErrMatchStatusConflict
	// means the match was no longer in from.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.MatchStatus, at time.Time) error
	// Complete marks an accepted match played with its winner.
	Complete(ctx context.Context, exec SQLExecutor, id, winnerTeamID int, at time.Time) error
	SetEvidence(ctx context.Context, exec SQLExecutor, id int, key string) error
	CountRejectedBy(ctx context.Context, exec SQLExecutor, teamID int, since time.Time) (int, error)
	CountPlayedBy(ctx context.Context, exec SQLExecutor, teamID int, since time.Time) (int, error)
	// WeeklyActivity counts played matches per team of the pyramid in [previous, current)
	// and [current, now).
	WeeklyActivity(ctx context.Context, exec SQLExecutor, pyramidID int, current, previous time.Time) (map[int]models.WeeklyActivity, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, pyramid_id, challenger_team_id, defender_team_id, winner_team_id, status,
	evidence_key, status_changed_at, created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m           models.Match
		winnerID    sql.NullInt64
		evidenceKey sql.NullString
	)
	err := row.Scan(
		&m.ID,
		&m.PyramidID,
		&m.ChallengerTeamID,
		&m.DefenderTeamID,
		&winnerID,
		&m.Status,
		&evidenceKey,
		&m.StatusChangedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if winnerID.Valid {
		id := int(winnerID.Int64)
		m.WinnerTeamID = &id
	}
	if evidenceKey.Valid {
		key := evidenceKey.String
		m.EvidenceKey = &key
	}
	return &m, nil
}

func (r *postgresMatchRepository) queryMany(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (pyramid_id, challenger_team_id, defender_team_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status_changed_at, created_at, updated_at`

	if match.Status == "" {
		match.Status = models.MatchStatusPending
	}
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.PyramidID, match.ChallengerTeamID, match.DefenderTeamID, match.Status,
	).Scan(&match.ID, &match.StatusChangedAt, &match.CreatedAt, &match.UpdatedAt)
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	match, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByPyramid(ctx context.Context, exec SQLExecutor, pyramidID int, statuses ...models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE pyramid_id = $1`)
	args := []interface{}{pyramidID}

	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		queryBuilder.WriteString(` AND status = ANY($2)`)
		args = append(args, pq.Array(names))
	}
	queryBuilder.WriteString(` ORDER BY created_at DESC, id DESC`)

	return r.queryMany(ctx, exec, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListPendingAgainst(ctx context.Context, exec SQLExecutor, pyramidID, defenderTeamID, exceptMatchID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE pyramid_id = $1 AND defender_team_id = $2 AND status = 'pending' AND id <> $3
		ORDER BY id
		FOR UPDATE`
	return r.queryMany(ctx, exec, query, pyramidID, defenderTeamID, exceptMatchID)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.MatchStatus, at time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, status_changed_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id, winnerTeamID int, at time.Time) error {
	query := `
		UPDATE matches
		SET status = 'played', winner_team_id = $1, status_changed_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'accepted'`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, winnerTeamID, at, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) SetEvidence(ctx context.Context, exec SQLExecutor, id int, key string) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE matches SET evidence_key = $1, updated_at = NOW() WHERE id = $2`, key, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountRejectedBy(ctx context.Context, exec SQLExecutor, teamID int, since time.Time) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE defender_team_id = $1 AND status = 'rejected' AND status_changed_at >= $2`,
		teamID, since,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) CountPlayedBy(ctx context.Context, exec SQLExecutor, teamID int, since time.Time) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE (challenger_team_id = $1 OR defender_team_id = $1)
		  AND status = 'played' AND status_changed_at >= $2`,
		teamID, since,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) WeeklyActivity(ctx context.Context, exec SQLExecutor, pyramidID int, current, previous time.Time) (map[int]models.WeeklyActivity, error) {
	query := `
		SELECT team_id,
		       COUNT(*) FILTER (WHERE played_at >= $2) AS this_week,
		       COUNT(*) FILTER (WHERE played_at < $2) AS last_week
		FROM (
			SELECT challenger_team_id AS team_id, status_changed_at AS played_at
			FROM matches
			WHERE pyramid_id = $1 AND status = 'played' AND status_changed_at >= $3
			UNION ALL
			SELECT defender_team_id, status_changed_at
			FROM matches
			WHERE pyramid_id = $1 AND status = 'played' AND status_changed_at >= $3
		) played
		GROUP BY team_id`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pyramidID, current, previous)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activity := make(map[int]models.WeeklyActivity)
	for rows.Next() {
		var a models.WeeklyActivity
		if scanErr := rows.Scan(&a.TeamID, &a.ThisWeek, &a.LastWeek); scanErr != nil {
			return nil, scanErr
		}
		activity[a.TeamID] = a
	}
	return activity, rows.Err()
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	pqErr, ok := asPQError(err)
	if !ok {
		return err
	}
	switch pqErr.Code {
	case pgCheckViolation:
		switch pqErr.Constraint {
		case "chk_match_distinct_teams":
			return ErrMatchTeamsInvalid
		case "chk_match_winner":
			return ErrMatchWinnerInvalid
		}
	case pgForeignKeyViolation:
		if strings.HasSuffix(pqErr.Constraint, "pyramid_id_fkey") {
			return ErrMatchPyramidInvalid
		}
		return ErrMatchTeamsInvalid
	}
	return err
}
