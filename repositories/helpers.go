package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dosada05/pyramid-ladder/models"
)

// Postgres error codes handled by the repositories.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// asPQError unwraps a lib/pq error, if any.
func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// nullPlayer receives the LEFT JOINed columns of a users row.
type nullPlayer struct {
	ID              sql.NullInt64
	PaternalSurname sql.NullString
	MaternalSurname sql.NullString
	Nickname        sql.NullString
	Email           sql.NullString
	Role            sql.NullString
	CreatedAt       sql.NullTime
}

func (n *nullPlayer) dest() []interface{} {
	return []interface{}{
		&n.ID, &n.PaternalSurname, &n.MaternalSurname, &n.Nickname, &n.Email, &n.Role, &n.CreatedAt,
	}
}

func (n *nullPlayer) toPlayer() *models.Player {
	if !n.ID.Valid {
		return nil
	}
	p := &models.Player{
		ID:              int(n.ID.Int64),
		PaternalSurname: n.PaternalSurname.String,
		MaternalSurname: n.MaternalSurname.String,
		Email:           n.Email.String,
		Role:            models.UserRole(n.Role.String),
		CreatedAt:       n.CreatedAt.Time,
	}
	if n.Nickname.Valid {
		nick := n.Nickname.String
		p.Nickname = &nick
	}
	return p
}

// int64s converts ids for pq.Array, which has no native []int case.
func int64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
