package ladder

import (
	"errors"

	"github.com/Dosada05/pyramid-ladder/models"
)

var (
	ErrNotPositioned = errors.New("acting team holds no position in this pyramid")
	ErrEmptySlot     = errors.New("target slot is empty")
	ErrSelfChallenge = errors.New("a team cannot challenge itself")
	ErrApexChallenge = errors.New("the apex team has no one to challenge")
	ErrSameRowRight  = errors.New("only teams to the left in the same row can be challenged")
	ErrOutOfReach    = errors.New("target is out of reach")
	ErrOpenChallenge = errors.New("an open challenge already exists between these teams")
)

// CheckChallenge reports whether actingTeamID may challenge the team at target, given
// the grid and the pyramid's open (pending or accepted) matches. A nil error means
// the challenge is legal.
func CheckChallenge(g Grid, open []*models.Match, actingTeamID int, target models.Slot) error {
	user, ok := g.SlotOf(actingTeamID)
	if !ok {
		return ErrNotPositioned
	}
	targetTeamID, ok := g.TeamAt(target)
	if !ok {
		return ErrEmptySlot
	}
	if user == target {
		return ErrSelfChallenge
	}
	if user.Row == 1 {
		return ErrApexChallenge
	}

	switch target.Row {
	case user.Row:
		if target.Col >= user.Col {
			return ErrSameRowRight
		}
	case user.Row - 1:
		// the whole row above is reachable, leftmost column included
	default:
		return ErrOutOfReach
	}

	for _, m := range open {
		if m != nil && m.IsOpen() && m.Between(actingTeamID, targetTeamID) {
			return ErrOpenChallenge
		}
	}
	return nil
}

// ChallengeableSlots lists every slot actingTeamID may challenge right now.
func ChallengeableSlots(g Grid, open []*models.Match, actingTeamID int) []models.Slot {
	user, ok := g.SlotOf(actingTeamID)
	if !ok || user.Row == 1 {
		return []models.Slot{}
	}

	candidates := make([]models.Slot, 0, user.Row*2)
	for col := 1; col <= user.Row-1; col++ {
		candidates = append(candidates, models.Slot{Row: user.Row - 1, Col: col})
	}
	for col := 1; col < user.Col; col++ {
		candidates = append(candidates, models.Slot{Row: user.Row, Col: col})
	}

	slots := make([]models.Slot, 0, len(candidates))
	for _, s := range candidates {
		if CheckChallenge(g, open, actingTeamID, s) == nil {
			slots = append(slots, s)
		}
	}
	sortSlots(slots)
	return slots
}
