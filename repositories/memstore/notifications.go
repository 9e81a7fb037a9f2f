package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type notificationRepo struct{ s *Store }

func (r notificationRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, notifications []*models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.CreateBatch"); err != nil {
		return err
	}
	for _, n := range notifications {
		n.ID = r.s.nextID()
		n.CreatedAt = r.s.Now()
		r.s.st.notifications[n.ID] = *n
	}
	return nil
}

func (r notificationRepo) ListByUser(_ context.Context, _ repositories.SQLExecutor, userID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notifications := make([]*models.Notification, 0)
	for _, n := range r.s.st.notifications {
		if n.UserID != userID || (unreadOnly && n.ViewedAt != nil) {
			continue
		}
		n := n
		notifications = append(notifications, &n)
	}
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID > notifications[j].ID })
	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (r notificationRepo) CountUnread(_ context.Context, _ repositories.SQLExecutor, userID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, n := range r.s.st.notifications {
		if n.UserID == userID && n.ViewedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) MarkViewed(_ context.Context, _ repositories.SQLExecutor, userID, notificationID int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notifications[notificationID]
	if !ok || n.UserID != userID {
		return repositories.ErrNotificationNotFound
	}
	if n.ViewedAt == nil {
		n.ViewedAt = &at
		r.s.st.notifications[notificationID] = n
	}
	return nil
}

func (r notificationRepo) MarkMatchViewed(_ context.Context, _ repositories.SQLExecutor, userID, matchID int, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	marked := 0
	for id, n := range r.s.st.notifications {
		if n.UserID == userID && n.MatchID != nil && *n.MatchID == matchID && n.ViewedAt == nil {
			viewed := at
			n.ViewedAt = &viewed
			r.s.st.notifications[id] = n
			marked++
		}
	}
	return marked, nil
}
