package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/pyramid-ladder/models"
)

// HistoryRepository is append-only: position history is never updated or deleted.
type HistoryRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.PositionHistory) error
	ListByPyramid(ctx context.Context, exec SQLExecutor, pyramidID int, limit int) ([]*models.PositionHistory, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PositionHistory, error)
}

type postgresHistoryRepository struct {
	db *sql.DB
}

func NewPostgresHistoryRepository(db *sql.DB) HistoryRepository {
	return &postgresHistoryRepository{db: db}
}

func (r *postgresHistoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const historyColumns = `id, pyramid_id, match_id, team_id, affected_team_id, old_row, old_col, new_row, new_col,
	affected_old_row, affected_old_col, affected_new_row, affected_new_col, effective_at`

func scanHistory(row rowScanner) (*models.PositionHistory, error) {
	var (
		h    models.PositionHistory
		ints [12]sql.NullInt64
	)
	err := row.Scan(
		&h.ID,
		&ints[0], &ints[1], &ints[2], &ints[3],
		&ints[4], &ints[5], &ints[6], &ints[7],
		&ints[8], &ints[9], &ints[10], &ints[11],
		&h.EffectiveAt,
	)
	if err != nil {
		return nil, err
	}
	targets := []**int{
		&h.PyramidID, &h.MatchID, &h.TeamID, &h.AffectedTeamID,
		&h.OldRow, &h.OldCol, &h.NewRow, &h.NewCol,
		&h.AffectedOldRow, &h.AffectedOldCol, &h.AffectedNewRow, &h.AffectedNewCol,
	}
	for i, n := range ints {
		if n.Valid {
			v := int(n.Int64)
			*targets[i] = &v
		}
	}
	return &h, nil
}

func (r *postgresHistoryRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.PositionHistory) error {
	query := `
		INSERT INTO position_history
			(pyramid_id, match_id, team_id, affected_team_id, old_row, old_col, new_row, new_col,
			 affected_old_row, affected_old_col, affected_new_row, affected_new_col, effective_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, NOW()))
		RETURNING id, effective_at`

	var effectiveAt interface{}
	if !entry.EffectiveAt.IsZero() {
		effectiveAt = entry.EffectiveAt
	}

	return r.getExecutor(exec).QueryRowContext(ctx, query,
		entry.PyramidID, entry.MatchID, entry.TeamID, entry.AffectedTeamID,
		entry.OldRow, entry.OldCol, entry.NewRow, entry.NewCol,
		entry.AffectedOldRow, entry.AffectedOldCol, entry.AffectedNewRow, entry.AffectedNewCol,
		effectiveAt,
	).Scan(&entry.ID, &entry.EffectiveAt)
}

func (r *postgresHistoryRepository) ListByPyramid(ctx context.Context, exec SQLExecutor, pyramidID int, limit int) ([]*models.PositionHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM position_history
		WHERE pyramid_id = $1
		ORDER BY effective_at DESC, id DESC
		LIMIT $2`
	return r.queryMany(ctx, exec, query, pyramidID, limit)
}

func (r *postgresHistoryRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PositionHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM position_history WHERE match_id = $1 ORDER BY id`
	return r.queryMany(ctx, exec, query, matchID)
}

func (r *postgresHistoryRepository) queryMany(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.PositionHistory, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.PositionHistory, 0)
	for rows.Next() {
		entry, scanErr := scanHistory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
