package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/pyramid-ladder/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, notifications []*models.Notification) error
	ListByUser(ctx context.Context, exec SQLExecutor, userID int, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, exec SQLExecutor, userID int) (int, error)
	MarkViewed(ctx context.Context, exec SQLExecutor, userID, notificationID int, at time.Time) error
	// MarkMatchViewed marks every unread notification of the user about the match.
	MarkMatchViewed(ctx context.Context, exec SQLExecutor, userID, matchID int, at time.Time) (int, error)
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresNotificationRepository) CreateBatch(ctx context.Context, exec SQLExecutor, notifications []*models.Notification) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO notifications (user_id, pyramid_id, match_id, kind, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	for _, n := range notifications {
		err := executor.QueryRowContext(ctx, query, n.UserID, n.PyramidID, n.MatchID, n.Kind, n.Message).
			Scan(&n.ID, &n.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to store notification for user %d: %w", n.UserID, err)
		}
	}
	return nil
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, exec SQLExecutor, userID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, pyramid_id, match_id, kind, message, viewed_at, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR viewed_at IS NULL)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var (
			n         models.Notification
			pyramidID sql.NullInt64
			matchID   sql.NullInt64
			viewedAt  sql.NullTime
		)
		if scanErr := rows.Scan(&n.ID, &n.UserID, &pyramidID, &matchID, &n.Kind, &n.Message, &viewedAt, &n.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		if pyramidID.Valid {
			id := int(pyramidID.Int64)
			n.PyramidID = &id
		}
		if matchID.Valid {
			id := int(matchID.Int64)
			n.MatchID = &id
		}
		if viewedAt.Valid {
			t := viewedAt.Time
			n.ViewedAt = &t
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func (r *postgresNotificationRepository) CountUnread(ctx context.Context, exec SQLExecutor, userID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND viewed_at IS NULL`, userID,
	).Scan(&count)
	return count, err
}

func (r *postgresNotificationRepository) MarkViewed(ctx context.Context, exec SQLExecutor, userID, notificationID int, at time.Time) error {
	query := `
		UPDATE notifications SET viewed_at = COALESCE(viewed_at, $1)
		WHERE id = $2 AND user_id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, at, notificationID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}

func (r *postgresNotificationRepository) MarkMatchViewed(ctx context.Context, exec SQLExecutor, userID, matchID int, at time.Time) (int, error) {
	query := `
		UPDATE notifications SET viewed_at = $1
		WHERE user_id = $2 AND match_id = $3 AND viewed_at IS NULL`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, at, userID, matchID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}
