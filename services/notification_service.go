package services

import (
	"context"

	"github.com/itbasis/go-clock"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

const defaultInboxLimit = 50

// NotificationService is the user's inbox.
type NotificationService interface {
	List(ctx context.Context, actor Actor, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, actor Actor) (int, error)
	MarkViewed(ctx context.Context, actor Actor, notificationID int) error
	MarkMatchViewed(ctx context.Context, actor Actor, matchID int) (int, error)
}

type notificationService struct {
	repo  repositories.NotificationRepository
	clock clock.Clock
}

func NewNotificationService(repo repositories.NotificationRepository, clock clock.Clock) NotificationService {
	return &notificationService{repo: repo, clock: clock}
}

func (s *notificationService) List(ctx context.Context, actor Actor, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultInboxLimit
	}
	notifications, err := s.repo.ListByUser(ctx, nil, actor.UserID, unreadOnly, limit)
	if err != nil {
		return nil, handleRepositoryError(err, "list notifications of user %d", actor.UserID)
	}
	if notifications == nil {
		return []*models.Notification{}, nil
	}
	return notifications, nil
}

func (s *notificationService) CountUnread(ctx context.Context, actor Actor) (int, error) {
	n, err := s.repo.CountUnread(ctx, nil, actor.UserID)
	if err != nil {
		return 0, handleRepositoryError(err, "count unread notifications of user %d", actor.UserID)
	}
	return n, nil
}

func (s *notificationService) MarkViewed(ctx context.Context, actor Actor, notificationID int) error {
	err := s.repo.MarkViewed(ctx, nil, actor.UserID, notificationID, s.clock.Now())
	return handleRepositoryError(err, "mark notification %d viewed", notificationID)
}

func (s *notificationService) MarkMatchViewed(ctx context.Context, actor Actor, matchID int) (int, error) {
	n, err := s.repo.MarkMatchViewed(ctx, nil, actor.UserID, matchID, s.clock.Now())
	if err != nil {
		return 0, handleRepositoryError(err, "mark match %d notifications viewed", matchID)
	}
	return n, nil
}
