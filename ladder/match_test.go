package ladder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dosada05/pyramid-ladder/models"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]models.MatchStatus]bool{
		{models.MatchStatusPending, models.MatchStatusAccepted}:   true,
		{models.MatchStatusPending, models.MatchStatusRejected}:   true,
		{models.MatchStatusPending, models.MatchStatusCancelled}:  true,
		{models.MatchStatusAccepted, models.MatchStatusPlayed}:    true,
		{models.MatchStatusAccepted, models.MatchStatusCancelled}: true,
	}
	all := []models.MatchStatus{
		models.MatchStatusPending, models.MatchStatusAccepted, models.MatchStatusPlayed,
		models.MatchStatusRejected, models.MatchStatusCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]models.MatchStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
			if want {
				assert.NoError(t, Transition(from, to))
			} else {
				assert.ErrorIs(t, Transition(from, to), ErrInvalidTransition)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.MatchStatusPlayed))
	assert.True(t, IsTerminal(models.MatchStatusRejected))
	assert.True(t, IsTerminal(models.MatchStatusCancelled))
	assert.False(t, IsTerminal(models.MatchStatusPending))
	assert.False(t, IsTerminal(models.MatchStatusAccepted))
}

func TestResolve(t *testing.T) {
	challenger := models.Slot{Row: 2, Col: 1}
	defender := models.Slot{Row: 1, Col: 1}

	won := Resolve(challenger, defender, true)
	assert.True(t, won.Swap)
	assert.Equal(t, defender, won.ChallengerNew)
	assert.Equal(t, challenger, won.DefenderNew)
	assert.Equal(t, models.Outcome{Won: true, LastResult: models.LastResultUp}, won.Challenger)
	assert.Equal(t, models.Outcome{Won: false, LastResult: models.LastResultDown}, won.Defender)

	lost := Resolve(challenger, defender, false)
	assert.False(t, lost.Swap)
	assert.Equal(t, challenger, lost.ChallengerNew)
	assert.Equal(t, defender, lost.DefenderNew)
	assert.False(t, lost.Challenger.Won)
	assert.True(t, lost.Defender.Won)
}

func TestResolve_ChallengerAlreadyAbove(t *testing.T) {
	challenger := models.Slot{Row: 2, Col: 1}
	defender := models.Slot{Row: 2, Col: 2}

	won := Resolve(challenger, defender, true)
	assert.False(t, won.Swap, "a win never moves the challenger down")
	assert.Equal(t, challenger, won.ChallengerNew)
	assert.Equal(t, defender, won.DefenderNew)
	assert.Equal(t, models.Outcome{Won: true, LastResult: models.LastResultStayed}, won.Challenger)
	assert.Equal(t, models.Outcome{Won: false, LastResult: models.LastResultStayed}, won.Defender)

	assert.False(t, Resolve(models.Slot{Row: 2, Col: 1}, models.Slot{Row: 3, Col: 3}, true).Swap)
}

func TestOutranks(t *testing.T) {
	assert.True(t, Outranks(models.Slot{Row: 1, Col: 1}, models.Slot{Row: 2, Col: 1}))
	assert.True(t, Outranks(models.Slot{Row: 2, Col: 2}, models.Slot{Row: 3, Col: 1}))
	assert.True(t, Outranks(models.Slot{Row: 3, Col: 1}, models.Slot{Row: 3, Col: 2}))
	assert.False(t, Outranks(models.Slot{Row: 3, Col: 2}, models.Slot{Row: 3, Col: 1}))
	assert.False(t, Outranks(models.Slot{Row: 2, Col: 2}, models.Slot{Row: 2, Col: 2}))
}

func TestRejectionBlocked(t *testing.T) {
	assert.False(t, RejectionBlocked(1, 0, false))
	assert.True(t, RejectionBlocked(2, 0, false))
	assert.False(t, RejectionBlocked(2, 0, true))
	assert.False(t, RejectionBlocked(5, 1, false))
}

func TestHandicapPoints(t *testing.T) {
	assert.Equal(t, 0, HandicapPoints(3, 3))
	assert.Equal(t, 30, HandicapPoints(1, 3))
	assert.Equal(t, 30, HandicapPoints(3, 1))
}
