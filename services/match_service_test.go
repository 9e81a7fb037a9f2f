package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/storage"
)

// grid seeds a full three-row pyramid:
//
//	      A
//	    B   C
//	  D   E   F
type grid struct {
	A, B, C, D, E, F seededTeam
}

func (f *fixture) grid() grid {
	return grid{
		A: f.placed(1, 1, "Alba", "Arce"),
		B: f.placed(2, 1, "Bravo", "Bello"),
		C: f.placed(2, 2, "Cano", "Cruz"),
		D: f.placed(3, 1, "Diaz", "Duran"),
		E: f.placed(3, 2, "Egea", "Espino"),
		F: f.placed(3, 3, "Feliu", "Frias"),
	}
}

func TestCreateMatch_ChallengeRules(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()

	m, err := f.matches.CreateMatch(f.ctx, g.C.Actor, f.pyramid.ID, g.B.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPending, m.Status)
	assert.Equal(t, g.C.ID, m.ChallengerTeamID)

	tests := []struct {
		name       string
		challenger seededTeam
		defender   seededTeam
		want       error
	}{
		{"same row to the right", g.B, g.C, ladder.ErrSameRowRight},
		{"two rows up", g.D, g.A, ladder.ErrOutOfReach},
		{"row below", g.B, g.E, ladder.ErrOutOfReach},
		{"apex", g.A, g.B, ladder.ErrApexChallenge},
		{"open challenge", g.C, g.B, ladder.ErrOpenChallenge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.matches.CreateMatch(f.ctx, tt.challenger.Actor, f.pyramid.ID, tt.defender.ID)
			assert.ErrorIs(t, err, ErrChallengeNotAllowed)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	events := f.notifier.events
	require.Len(t, events, 1)
	assert.Equal(t, models.NotificationChallengeIssued, events[0].Kind)
	assert.Equal(t, "Liga Otoño", events[0].PyramidName)
	require.Len(t, events[0].Recipients, 2)
	assert.True(t, f.team(g.B.ID).HasPlayer(events[0].Recipients[0].ID))
}

func TestCreateMatch_Preconditions(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()

	_, err := f.matches.CreateMatch(f.ctx, Actor{UserID: 424242, Role: models.RolePlayer}, f.pyramid.ID, g.A.ID)
	assert.ErrorIs(t, err, ErrNoTeam)

	unplaced := f.newTeam("Nieto", "Nuñez")
	_, err = f.matches.CreateMatch(f.ctx, g.B.Actor, f.pyramid.ID, unplaced.ID)
	assert.ErrorIs(t, err, ErrChallengeNotAllowed)

	_, err = f.matches.CreateMatch(f.ctx, unplaced.Actor, f.pyramid.ID, g.A.ID)
	assert.ErrorIs(t, err, ladder.ErrNotPositioned)

	inactive := false
	_, err = f.pyramids.UpdatePyramid(f.ctx, f.pyramid.ID, UpdatePyramidInput{Active: &inactive})
	require.NoError(t, err)
	_, err = f.matches.CreateMatch(f.ctx, g.B.Actor, f.pyramid.ID, g.A.ID)
	assert.ErrorIs(t, err, ErrPyramidInactive)
}

func TestCreateMatch_HandicapFromCategoryLevels(t *testing.T) {
	f := newFixture(t, 2)
	strong := f.store.AddCategory("Élite", 3)
	top := f.newTeamInCategory(strong, "Mora", "Marin")
	require.NoError(t, f.store.Positions().Create(f.ctx, nil, &models.Position{PyramidID: f.pyramid.ID, TeamID: top.ID, Row: 1, Col: 1}))
	bottom := f.placed(2, 1, "Ortiz", "Olmo")

	f.challenge(bottom, top)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, 30, f.notifier.events[0].HandicapPoints)
}

func TestAcceptMatch_CancelsOtherPendingChallenges(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	accepted := f.challenge(g.D, g.B)
	other := f.challenge(g.C, g.B)
	upwards := f.challenge(g.B, g.A)
	f.notifier.reset()

	_, err := f.matches.AcceptMatch(f.ctx, g.C.Actor, accepted)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	m, err := f.matches.AcceptMatch(f.ctx, g.B.Actor, accepted)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusAccepted, m.Status)
	assert.Equal(t, models.MatchStatusCancelled, f.matchStatus(other))
	assert.Equal(t, models.MatchStatusPending, f.matchStatus(upwards), "challenges made by the defender stay open")

	kinds := f.notifier.kinds()
	assert.Equal(t, []models.NotificationKind{models.NotificationChallengeAccepted, models.NotificationChallengeCancelled}, kinds)
	assert.Len(t, f.notifier.events[0].Recipients, 4)
	cancelled := f.notifier.events[1]
	assert.Equal(t, other, cancelled.MatchID)
	assert.Contains(t, cancelled.Context, "Bravo / Bello")
	require.Len(t, cancelled.Recipients, 2)
	assert.True(t, f.team(g.C.ID).HasPlayer(cancelled.Recipients[0].ID))

	_, err = f.matches.AcceptMatch(f.ctx, g.B.Actor, accepted)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAcceptMatch_DefenderHonorsOneAcceptedChallenge(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	first := f.challenge(g.D, g.B)
	_, err := f.matches.AcceptMatch(f.ctx, g.B.Actor, first)
	require.NoError(t, err)
	second := f.challenge(g.C, g.B)
	f.notifier.reset()

	_, err = f.matches.AcceptMatch(f.ctx, g.B.Actor, second)
	assert.ErrorIs(t, err, ErrDefenderBusy)
	assert.Equal(t, models.MatchStatusAccepted, f.matchStatus(first))
	assert.Equal(t, models.MatchStatusPending, f.matchStatus(second))
	assert.Empty(t, f.notifier.kinds())

	_, err = f.matches.AcceptMatch(f.ctx, admin, second)
	assert.ErrorIs(t, err, ErrDefenderBusy, "admins cannot stack acceptances either")

	_, err = f.matches.CompleteMatch(f.ctx, g.B.Actor, first, g.B.ID)
	require.NoError(t, err)
	m, err := f.matches.AcceptMatch(f.ctx, g.B.Actor, second)
	require.NoError(t, err, "the defender is free once the accepted match is played")
	assert.Equal(t, models.MatchStatusAccepted, m.Status)
}

func TestRejectMatch_WeeklyLimit(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()

	for _, challenger := range []seededTeam{g.D, g.C} {
		_, err := f.matches.RejectMatch(f.ctx, g.B.Actor, f.challenge(challenger, g.B), false)
		require.NoError(t, err)
	}

	third := f.challenge(g.E, g.B)
	_, err := f.matches.RejectMatch(f.ctx, g.B.Actor, third, false)
	assert.ErrorIs(t, err, ErrRejectionLimitReached)
	assert.Equal(t, models.MatchStatusPending, f.matchStatus(third))

	m, err := f.matches.RejectMatch(f.ctx, g.B.Actor, third, true)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusRejected, m.Status)

	last := f.notifier.events[len(f.notifier.events)-1]
	assert.Equal(t, models.NotificationChallengeRejected, last.Kind)
	assert.Len(t, last.Recipients, 12, "every positioned player hears about a rejection")
}

func TestRejectMatch_PlayingLiftsLimit(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	for _, challenger := range []seededTeam{g.D, g.C} {
		_, err := f.matches.RejectMatch(f.ctx, g.B.Actor, f.challenge(challenger, g.B), false)
		require.NoError(t, err)
	}
	f.play(g.F, g.B, g.B)

	_, err := f.matches.RejectMatch(f.ctx, g.B.Actor, f.challenge(g.E, g.B), false)
	assert.NoError(t, err)
}

func TestRejectMatch_LimitResetsOnMonday(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	for _, challenger := range []seededTeam{g.D, g.C} {
		_, err := f.matches.RejectMatch(f.ctx, g.B.Actor, f.challenge(challenger, g.B), false)
		require.NoError(t, err)
	}

	f.clock.Add(5 * 24 * time.Hour)

	_, err := f.matches.RejectMatch(f.ctx, g.B.Actor, f.challenge(g.E, g.B), false)
	assert.NoError(t, err)
}

func TestCancelMatch(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	id := f.challenge(g.C, g.B)
	f.notifier.reset()

	_, err := f.matches.CancelMatch(f.ctx, g.F.Actor, id)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	m, err := f.matches.CancelMatch(f.ctx, g.C.Actor, id)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCancelled, m.Status)

	m, err = f.matches.CancelMatch(f.ctx, g.B.Actor, id)
	require.NoError(t, err, "cancelling twice succeeds")
	assert.Equal(t, models.MatchStatusCancelled, m.Status)
	assert.Len(t, f.notifier.events, 1)

	played := f.play(g.E, g.C, g.C)
	_, err = f.matches.CancelMatch(f.ctx, admin, played)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCompleteMatch_ChallengerWinsSwapsPositions(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	id := f.challenge(g.D, g.B)
	_, err := f.matches.AcceptMatch(f.ctx, g.B.Actor, id)
	require.NoError(t, err)

	m, err := f.matches.CompleteMatch(f.ctx, g.D.Actor, id, g.D.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPlayed, m.Status)
	require.NotNil(t, m.WinnerTeamID)
	assert.Equal(t, g.D.ID, *m.WinnerTeamID)

	assert.Equal(t, models.Slot{Row: 2, Col: 1}, f.slotOf(g.D.ID))
	assert.Equal(t, models.Slot{Row: 3, Col: 1}, f.slotOf(g.B.ID))
	assert.NoError(t, f.store.CheckGrid())

	winner, loser := f.team(g.D.ID), f.team(g.B.ID)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, models.TeamStatusWinner, winner.Status)
	assert.Equal(t, models.LastResultUp, winner.LastResult)
	assert.Equal(t, 1, loser.Losses)
	assert.Equal(t, 1, loser.LosingStreak)
	assert.Equal(t, models.TeamStatusLooser, loser.Status)
	assert.Equal(t, models.LastResultDown, loser.LastResult)

	winnerPos, loserPos := f.position(g.D.ID), f.position(g.B.ID)
	assert.Equal(t, 1, winnerPos.Wins)
	assert.Equal(t, models.LastResultUp, winnerPos.LastResult)
	assert.Equal(t, 1, loserPos.LosingStreak)

	history, err := f.store.History().ListByMatch(f.ctx, nil, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	h := history[0]
	assert.Equal(t, g.D.ID, *h.TeamID)
	assert.Equal(t, g.B.ID, *h.AffectedTeamID)
	assert.Equal(t, []int{3, 1, 2, 1}, []int{*h.OldRow, *h.OldCol, *h.NewRow, *h.NewCol})
	assert.Equal(t, []int{2, 1, 3, 1}, []int{*h.AffectedOldRow, *h.AffectedOldCol, *h.AffectedNewRow, *h.AffectedNewCol})

	assert.Equal(t, models.NotificationMatchPlayed, f.notifier.events[len(f.notifier.events)-1].Kind)
}

func TestCompleteMatch_DefenderWinsKeepsPositions(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()

	id := f.play(g.E, g.C, g.C)

	assert.Equal(t, models.Slot{Row: 3, Col: 2}, f.slotOf(g.E.ID))
	assert.Equal(t, models.Slot{Row: 2, Col: 2}, f.slotOf(g.C.ID))
	assert.Equal(t, models.LastResultStayed, f.team(g.E.ID).LastResult)
	assert.Equal(t, models.LastResultStayed, f.team(g.C.ID).LastResult)
	assert.Equal(t, 1, f.team(g.C.ID).Wins)
	assert.Equal(t, 1, f.team(g.E.ID).Losses)

	history, err := f.store.History().ListByMatch(f.ctx, nil, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCompleteMatch_WinnerAlreadyAboveKeepsPositions(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	againstB := f.challenge(g.E, g.B)
	againstC := f.challenge(g.E, g.C)
	_, err := f.matches.AcceptMatch(f.ctx, g.B.Actor, againstB)
	require.NoError(t, err)
	_, err = f.matches.AcceptMatch(f.ctx, g.C.Actor, againstC)
	require.NoError(t, err)

	_, err = f.matches.CompleteMatch(f.ctx, g.E.Actor, againstB, g.E.ID)
	require.NoError(t, err)
	require.Equal(t, models.Slot{Row: 2, Col: 1}, f.slotOf(g.E.ID))

	m, err := f.matches.CompleteMatch(f.ctx, g.E.Actor, againstC, g.E.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPlayed, m.Status)
	assert.Equal(t, models.Slot{Row: 2, Col: 1}, f.slotOf(g.E.ID))
	assert.Equal(t, models.Slot{Row: 2, Col: 2}, f.slotOf(g.C.ID))
	assert.Equal(t, 2, f.team(g.E.ID).Wins)
	assert.Equal(t, 1, f.team(g.C.ID).Losses)
	assert.Equal(t, models.LastResultStayed, f.team(g.C.ID).LastResult)

	history, err := f.store.History().ListByMatch(f.ctx, nil, againstC)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NoError(t, f.store.CheckGrid())
}

func TestCompleteMatch_FailureRollsBackEverything(t *testing.T) {
	for _, op := range []string{"matches.Complete", "teams.RecordResult", "positions.RecordResult", "positions.Exchange", "history.Append"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t, 3)
			g := f.grid()
			id := f.challenge(g.D, g.B)
			_, err := f.matches.AcceptMatch(f.ctx, g.B.Actor, id)
			require.NoError(t, err)

			f.store.FailOn(op, assert.AnError)
			_, err = f.matches.CompleteMatch(f.ctx, g.D.Actor, id, g.D.ID)
			require.ErrorIs(t, err, assert.AnError)

			assert.Equal(t, models.MatchStatusAccepted, f.matchStatus(id))
			assert.Equal(t, models.Slot{Row: 3, Col: 1}, f.slotOf(g.D.ID))
			assert.Equal(t, models.Slot{Row: 2, Col: 1}, f.slotOf(g.B.ID))
			assert.Zero(t, f.team(g.D.ID).Wins)
			assert.Zero(t, f.team(g.B.ID).Losses)
			assert.Zero(t, f.position(g.D.ID).Wins)
			assert.Empty(t, f.history())

			_, err = f.matches.CompleteMatch(f.ctx, g.D.Actor, id, g.D.ID)
			require.NoError(t, err, "the match can be completed once the failure is gone")
			assert.Equal(t, models.Slot{Row: 2, Col: 1}, f.slotOf(g.D.ID))
		})
	}
}

func TestCompleteMatch_Validation(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	pending := f.challenge(g.C, g.B)

	_, err := f.matches.CompleteMatch(f.ctx, g.C.Actor, pending, g.C.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.matches.CompleteMatch(f.ctx, g.C.Actor, pending, g.A.ID)
	assert.ErrorIs(t, err, ErrInvalidWinner)

	_, err = f.matches.CompleteMatch(f.ctx, g.F.Actor, pending, g.C.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = f.matches.CompleteMatch(f.ctx, admin, 987654, g.C.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestCompleteMatch_GridStaysConsistent(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()

	f.play(g.F, g.C, g.F) // F up to (2,2), C down to (3,3)
	f.play(g.C, g.E, g.C) // same row, C to (3,2), E to (3,3)
	f.play(g.F, g.B, g.F) // F to (2,1), B to (2,2)
	f.play(g.F, g.A, g.F) // F to the apex
	f.play(g.D, g.A, g.D) // A is now at (2,1)

	assert.NoError(t, f.store.CheckGrid())
	assert.Equal(t, models.Slot{Row: 1, Col: 1}, f.slotOf(g.F.ID))
	assert.Equal(t, models.Slot{Row: 2, Col: 1}, f.slotOf(g.D.ID))
	assert.Equal(t, models.Slot{Row: 3, Col: 1}, f.slotOf(g.A.ID))
	assert.Equal(t, models.Slot{Row: 2, Col: 2}, f.slotOf(g.B.ID))
	assert.Equal(t, models.Slot{Row: 3, Col: 2}, f.slotOf(g.C.ID))
	assert.Equal(t, models.Slot{Row: 3, Col: 3}, f.slotOf(g.E.ID))
	assert.Len(t, f.history(), 5)
}

func TestChallengeableSlots(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	f.challenge(g.E, g.C)

	slots, err := f.matches.ChallengeableSlots(f.ctx, g.E.Actor, f.pyramid.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Slot{{Row: 2, Col: 1}, {Row: 3, Col: 1}}, slots)

	slots, err = f.matches.ChallengeableSlots(f.ctx, Actor{UserID: 777}, f.pyramid.ID)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

type memUploader struct {
	objects map[string][]byte
	deleted []string
}

func (u *memUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.objects[key] = data
	return &storage.UploadResult{Key: key}, nil
}

func (u *memUploader) Delete(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	delete(u.objects, key)
	return nil
}

func (u *memUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadEvidence(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	uploader := &memUploader{objects: make(map[string][]byte)}
	svc := NewMatchService(f.store.Transactor(), f.store.Pyramids(), f.store.Positions(), f.store.Teams(),
		f.store.Matches(), f.store.History(), uploader, f.notifier, f.clock, time.UTC, discardLogger())

	id := f.challenge(g.C, g.B)
	_, err := svc.UploadEvidence(f.ctx, g.C.Actor, id, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrInvalidStatus, "pending matches take no evidence")

	_, err = f.matches.AcceptMatch(f.ctx, g.B.Actor, id)
	require.NoError(t, err)

	_, err = svc.UploadEvidence(f.ctx, g.C.Actor, id, strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrEvidenceType)

	_, err = svc.UploadEvidence(f.ctx, g.F.Actor, id, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	m, err := svc.UploadEvidence(f.ctx, g.C.Actor, id, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.NotNil(t, m.EvidenceKey)
	assert.True(t, strings.HasSuffix(*m.EvidenceKey, ".png"))
	require.NotNil(t, m.EvidenceURL)
	assert.Equal(t, "https://cdn.example.com/"+*m.EvidenceKey, *m.EvidenceURL)
	first := *m.EvidenceKey

	m, err = svc.UploadEvidence(f.ctx, g.B.Actor, id, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.NotEqual(t, first, *m.EvidenceKey)
	assert.Equal(t, []string{first}, uploader.deleted)
	assert.Len(t, uploader.objects, 1)

	_, err = f.matches.UploadEvidence(f.ctx, g.C.Actor, id, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrEvidenceDisabled)
}

func TestUploadEvidence_TooLarge(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	uploader := &memUploader{objects: make(map[string][]byte)}
	svc := NewMatchService(f.store.Transactor(), f.store.Pyramids(), f.store.Positions(), f.store.Teams(),
		f.store.Matches(), f.store.History(), uploader, f.notifier, f.clock, time.UTC, discardLogger())
	id := f.challenge(g.C, g.B)
	_, err := f.matches.AcceptMatch(f.ctx, g.B.Actor, id)
	require.NoError(t, err)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxEvidenceBytes)...)
	_, err = svc.UploadEvidence(f.ctx, g.C.Actor, id, bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrEvidenceTooLarge)
	assert.Empty(t, uploader.objects)
}
