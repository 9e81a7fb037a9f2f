package notify

import (
	"context"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

// InboxSink stores one notification row per recipient.
type InboxSink struct {
	repo repositories.NotificationRepository
}

func NewInboxSink(repo repositories.NotificationRepository) *InboxSink {
	return &InboxSink{repo: repo}
}

func (s *InboxSink) Notify(ctx context.Context, event Event) error {
	if len(event.Recipients) == 0 {
		return nil
	}

	message := Message(event)
	pyramidID := event.PyramidID
	rows := make([]*models.Notification, 0, len(event.Recipients))
	for _, p := range event.Recipients {
		rows = append(rows, &models.Notification{
			UserID:    p.ID,
			PyramidID: &pyramidID,
			MatchID:   event.matchID(),
			Kind:      event.Kind,
			Message:   message,
		})
	}
	return s.repo.CreateBatch(ctx, nil, rows)
}
