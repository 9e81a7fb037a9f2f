package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
)

func TestNotificationInbox(t *testing.T) {
	f := newFixture(t, 3)
	svc := NewNotificationService(f.store.Notifications(), f.clock)
	me := Actor{UserID: 41, Role: models.RolePlayer}
	other := Actor{UserID: 42, Role: models.RolePlayer}

	seed := []*models.Notification{
		{UserID: me.UserID, PyramidID: &f.pyramid.ID, MatchID: intp(7), Kind: models.NotificationChallengeIssued, Message: "reto"},
		{UserID: me.UserID, PyramidID: &f.pyramid.ID, MatchID: intp(7), Kind: models.NotificationChallengeAccepted, Message: "aceptado"},
		{UserID: me.UserID, PyramidID: &f.pyramid.ID, Kind: models.NotificationTeamRisky, Message: "riesgo"},
		{UserID: other.UserID, PyramidID: &f.pyramid.ID, MatchID: intp(7), Kind: models.NotificationChallengeIssued, Message: "reto"},
	}
	require.NoError(t, f.store.Notifications().CreateBatch(f.ctx, nil, seed))

	unread, err := svc.CountUnread(f.ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	inbox, err := svc.List(f.ctx, me, false, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	assert.Equal(t, models.NotificationTeamRisky, inbox[0].Kind, "newest first")

	marked, err := svc.MarkMatchViewed(f.ctx, me, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	inbox, err = svc.List(f.ctx, me, true, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, seed[2].ID, inbox[0].ID)

	require.NoError(t, svc.MarkViewed(f.ctx, me, seed[2].ID))
	unread, err = svc.CountUnread(f.ctx, me)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = svc.CountUnread(f.ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, unread, "other users keep their copy unread")
}

func TestNotificationInbox_ForeignNotification(t *testing.T) {
	f := newFixture(t, 3)
	svc := NewNotificationService(f.store.Notifications(), f.clock)
	n := &models.Notification{UserID: 42, Kind: models.NotificationTeamRisky, Message: "riesgo"}
	require.NoError(t, f.store.Notifications().CreateBatch(f.ctx, nil, []*models.Notification{n}))

	err := svc.MarkViewed(f.ctx, Actor{UserID: 41}, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	inbox, err := svc.List(f.ctx, Actor{UserID: 41}, false, 0)
	require.NoError(t, err)
	assert.NotNil(t, inbox)
	assert.Empty(t, inbox)
}
