package ladder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
)

// fullGrid places team id (row*10 + col) in every slot of a pyramid with rows rows.
func fullGrid(rows int) Grid {
	var positions []*models.Position
	for r := 1; r <= rows; r++ {
		for c := 1; c <= r; c++ {
			positions = append(positions, &models.Position{TeamID: r*10 + c, Row: r, Col: c})
		}
	}
	return NewGrid(positions)
}

func slot(r, c int) models.Slot { return models.Slot{Row: r, Col: c} }

func TestCheckChallenge(t *testing.T) {
	g := fullGrid(4)
	tests := []struct {
		name   string
		acting int
		target models.Slot
		want   error
	}{
		{"row above leftmost", 32, slot(2, 1), nil},
		{"row above rightmost", 31, slot(2, 2), nil},
		{"same row to the left", 33, slot(3, 1), nil},
		{"same row to the right", 31, slot(3, 2), ErrSameRowRight},
		{"self", 32, slot(3, 2), ErrSelfChallenge},
		{"apex", 11, slot(2, 1), ErrApexChallenge},
		{"two rows above", 41, slot(2, 1), ErrOutOfReach},
		{"row below", 21, slot(3, 1), ErrOutOfReach},
		{"empty slot", 32, slot(2, 3), ErrEmptySlot},
		{"not positioned", 99, slot(2, 1), ErrNotPositioned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckChallenge(g, nil, tt.acting, tt.target)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckChallenge_OpenMatchBlocksEitherDirection(t *testing.T) {
	g := fullGrid(3)
	open := []*models.Match{{ChallengerTeamID: 21, DefenderTeamID: 32, Status: models.MatchStatusPending}}

	assert.ErrorIs(t, CheckChallenge(g, open, 32, slot(2, 1)), ErrOpenChallenge)

	open[0].Status = models.MatchStatusAccepted
	assert.ErrorIs(t, CheckChallenge(g, open, 32, slot(2, 1)), ErrOpenChallenge)

	open[0].Status = models.MatchStatusRejected
	assert.NoError(t, CheckChallenge(g, open, 32, slot(2, 1)))
}

func TestCheckChallenge_Directional(t *testing.T) {
	g := fullGrid(5)
	occupied := g.Occupied()
	for _, a := range occupied {
		for _, b := range occupied {
			if a == b {
				continue
			}
			teamA, _ := g.TeamAt(a)
			teamB, _ := g.TeamAt(b)
			forward := CheckChallenge(g, nil, teamA, b) == nil
			backward := CheckChallenge(g, nil, teamB, a) == nil
			if forward {
				assert.False(t, backward, "%v and %v may challenge each other", a, b)
			}
		}
	}
}

func TestChallengeableSlots(t *testing.T) {
	g := fullGrid(4)

	assert.Equal(t, []models.Slot{slot(2, 1), slot(2, 2), slot(3, 1), slot(3, 2)}, ChallengeableSlots(g, nil, 33))
	assert.Equal(t, []models.Slot{slot(1, 1)}, ChallengeableSlots(g, nil, 21))
	assert.Empty(t, ChallengeableSlots(g, nil, 11))
	assert.Empty(t, ChallengeableSlots(g, nil, 1234))
}

func TestChallengeableSlots_SkipsEmptyAndOpen(t *testing.T) {
	g := NewGrid([]*models.Position{
		{TeamID: 1, Row: 1, Col: 1},
		{TeamID: 2, Row: 2, Col: 1},
		{TeamID: 3, Row: 3, Col: 2},
	})
	open := []*models.Match{{ChallengerTeamID: 3, DefenderTeamID: 2, Status: models.MatchStatusPending}}

	assert.Empty(t, ChallengeableSlots(g, open, 3))
	require.Equal(t, []models.Slot{slot(2, 1)}, ChallengeableSlots(g, nil, 3))
}
