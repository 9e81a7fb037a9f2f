package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/realtime"
	"github.com/Dosada05/pyramid-ladder/repositories/memstore"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

type recordingHub struct {
	mu       sync.Mutex
	rooms    []string
	messages []interface{}
}

func (h *recordingHub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms = append(h.rooms, roomID)
	h.messages = append(h.messages, message)
}

type countingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *countingNotifier) Notify(_ context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func player(id int, surname, email string) *models.Player {
	return &models.Player{ID: id, PaternalSurname: surname, Email: email}
}

func team(id int, p1, p2 *models.Player) *models.Team {
	return &models.Team{ID: id, Player1: p1, Player2: p2}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func challengeEvent() Event {
	attacker := team(1, player(1, "Lopez", "lopez@example.com"), player(2, "Diaz", "diaz@example.com"))
	defender := team(2, player(3, "Ruiz", "ruiz@example.com"), player(4, "Vega", ""))
	return Event{
		Kind:           models.NotificationChallengeIssued,
		PyramidID:      7,
		PyramidName:    "Liga Otoño",
		MatchID:        11,
		Attacker:       attacker,
		Defender:       defender,
		Recipients:     RecipientsOf(attacker, defender),
		HandicapPoints: 15,
	}
}

func TestRecipientsOf(t *testing.T) {
	shared := player(1, "Lopez", "")
	recipients := RecipientsOf(team(1, shared, nil), nil, team(2, shared, player(2, "Diaz", "")))

	require.Len(t, recipients, 2)
	assert.Equal(t, 1, recipients[0].ID)
	assert.Equal(t, 2, recipients[1].ID)
}

func TestMessage(t *testing.T) {
	e := challengeEvent()
	assert.Equal(t, "Lopez / Diaz retó a Ruiz / Vega (ventaja de 15 puntos)", Message(e))

	e.Kind = models.NotificationChallengeCancelled
	e.HandicapPoints = 0
	e.Context = "Se aceptó otro reto"
	assert.Equal(t, "Se canceló el reto de Lopez / Diaz a Ruiz / Vega. Se aceptó otro reto", Message(e))

	risky := Event{
		Kind:            models.NotificationTeamRisky,
		Team:            e.Attacker,
		CurrentPosition: &models.Slot{Row: 2, Col: 1},
		NextRowPosition: &models.Slot{Row: 3, Col: 1},
	}
	assert.Contains(t, Message(risky), "fila 3, columna 1")
}

func TestInboxSink_OneRowPerRecipient(t *testing.T) {
	store := memstore.New()
	sink := NewInboxSink(store.Notifications())

	require.NoError(t, sink.Notify(context.Background(), challengeEvent()))

	for _, userID := range []int{1, 2, 3, 4} {
		rows, err := store.Notifications().ListByUser(context.Background(), nil, userID, true, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1, "user %d", userID)
		assert.Equal(t, models.NotificationChallengeIssued, rows[0].Kind)
		require.NotNil(t, rows[0].MatchID)
		assert.Equal(t, 11, *rows[0].MatchID)
		assert.Nil(t, rows[0].ViewedAt)
	}
}

func TestLiveSink_BroadcastsToPyramidRoom(t *testing.T) {
	hub := &recordingHub{}
	sink := NewLiveSink(hub)

	require.NoError(t, sink.Notify(context.Background(), challengeEvent()))

	require.Len(t, hub.rooms, 1)
	assert.Equal(t, realtime.RoomForPyramid(7), hub.rooms[0])
	msg, ok := hub.messages[0].(realtime.WebSocketMessage)
	require.True(t, ok)
	assert.Equal(t, "challenge_issued", msg.Type)
	update, ok := msg.Payload.(LiveUpdate)
	require.True(t, ok)
	assert.Equal(t, "Lopez / Diaz", update.Attacker)
	assert.Equal(t, 11, update.MatchID)
}

func TestEmailSink_SkipsPlayersWithoutAddress(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything, "Nuevo reto en Liga Otoño", mock.AnythingOfType("string")).Return(nil)
	sink := NewEmailSink(mailer, "https://ladder.example.com")

	require.NoError(t, sink.Notify(context.Background(), challengeEvent()))

	mailer.AssertNumberOfCalls(t, "Send", 3)
	mailer.AssertCalled(t, "Send", mock.Anything, []string{"ruiz@example.com"}, mock.Anything, mock.Anything)
}

func TestEmailSink_CollectsFailures(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, []string{"lopez@example.com"}, mock.Anything, mock.Anything).Return(errors.New("mailbox full"))
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sink := NewEmailSink(mailer, "")

	err := sink.Notify(context.Background(), challengeEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lopez@example.com")
	mailer.AssertNumberOfCalls(t, "Send", 3)
}

func TestEmailSink_RenderRiskyTemplate(t *testing.T) {
	sink := NewEmailSink(&mockMailer{}, "https://ladder.example.com")
	body, err := sink.Render(Event{
		Kind:            models.NotificationTeamRisky,
		PyramidID:       3,
		PyramidName:     "Liga",
		Team:            team(1, player(1, "Lopez", ""), player(2, "Diaz", "")),
		CurrentPosition: &models.Slot{Row: 2, Col: 2},
		NextRowPosition: &models.Slot{Row: 3, Col: 2},
	})

	require.NoError(t, err)
	assert.Contains(t, body, "Lopez / Diaz")
	assert.Contains(t, body, "fila 2, columna 2")
	assert.Contains(t, body, "fila 3, columna 2")
	assert.Contains(t, body, "https://ladder.example.com/pyramids/3")
}

func TestFanout_ContinuesAfterFailure(t *testing.T) {
	failing := &countingNotifier{err: errors.New("down")}
	ok := &countingNotifier{}

	err := NewFanout(failing, ok).Notify(context.Background(), challengeEvent())

	require.Error(t, err)
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)
}

func TestAsync_DeliversBeforeClose(t *testing.T) {
	next := &countingNotifier{err: errors.New("ignored")}
	async := NewAsync(next, 2, 16, discardLogger())

	for i := 0; i < 5; i++ {
		assert.NoError(t, async.Notify(context.Background(), challengeEvent()))
	}
	async.Close()

	assert.Len(t, next.events, 5)
}

func TestAsync_OutlivesCancelledRequest(t *testing.T) {
	next := &countingNotifier{}
	async := NewAsync(next, 1, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, async.Notify(ctx, challengeEvent()))
	async.Close()

	assert.Len(t, next.events, 1)
}

func TestAsync_LogsFailedDelivery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	async := NewAsync(&countingNotifier{err: errors.New("smtp down")}, 1, 4, logger)

	require.NoError(t, async.Notify(context.Background(), challengeEvent()))
	async.Close()

	var entries []map[string]interface{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]interface{}
		require.NoError(t, dec.Decode(&entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)
	failed := entries[0]
	assert.Equal(t, "notification delivery failed", failed["msg"])
	assert.Equal(t, string(models.NotificationChallengeIssued), failed["kind"])
	assert.EqualValues(t, 7, failed["pyramid_id"])
	assert.EqualValues(t, 11, failed["match_id"])
	assert.Equal(t, "smtp down", failed["error"])
	assert.EqualValues(t, 1, entries[1]["delivered"])
}
