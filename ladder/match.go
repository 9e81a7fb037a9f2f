package ladder

import (
	"errors"
	"fmt"

	"github.com/Dosada05/pyramid-ladder/models"
)

// RejectionLimit is how many challenges a team may reject in a week without playing
// before further rejections need an explicit override.
const RejectionLimit = 2

// HandicapPointsPerLevel is multiplied by the category level difference.
const HandicapPointsPerLevel = 15

var ErrInvalidTransition = errors.New("invalid match status transition")

var allowedTransitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchStatusPending:   {models.MatchStatusAccepted, models.MatchStatusRejected, models.MatchStatusCancelled},
	models.MatchStatusAccepted:  {models.MatchStatusPlayed, models.MatchStatusCancelled},
	models.MatchStatusPlayed:    {},
	models.MatchStatusRejected:  {},
	models.MatchStatusCancelled: {},
}

// CanTransition reports whether a match may move from current to next.
func CanTransition(current, next models.MatchStatus) bool {
	for _, allowed := range allowedTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns ErrInvalidTransition wrapped with both statuses when the move
// is not allowed.
func Transition(current, next models.MatchStatus) error {
	if !CanTransition(current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	return nil
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s models.MatchStatus) bool {
	next, known := allowedTransitions[s]
	return known && len(next) == 0
}

// Resolution is what a played match does to both sides.
type Resolution struct {
	Challenger    models.Outcome
	Defender      models.Outcome
	Swap          bool
	ChallengerNew models.Slot
	DefenderNew   models.Slot
}

// Outranks reports whether a sits higher in the pyramid than b: an upper row, or the
// same row further left.
func Outranks(a, b models.Slot) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// Resolve decides positions and outcomes of a played match from the teams' current
// slots. A winning challenger takes the defender's slot and the defender drops into
// the challenger's. A successful defence changes no slot, and neither does a win by a
// challenger that already outranks the defender.
func Resolve(challenger, defender models.Slot, challengerWon bool) Resolution {
	if challengerWon && !Outranks(defender, challenger) {
		return Resolution{
			Challenger:    models.Outcome{Won: true, LastResult: models.LastResultStayed},
			Defender:      models.Outcome{Won: false, LastResult: models.LastResultStayed},
			ChallengerNew: challenger,
			DefenderNew:   defender,
		}
	}
	if challengerWon {
		return Resolution{
			Challenger:    models.Outcome{Won: true, LastResult: models.LastResultUp},
			Defender:      models.Outcome{Won: false, LastResult: models.LastResultDown},
			Swap:          true,
			ChallengerNew: defender,
			DefenderNew:   challenger,
		}
	}
	return Resolution{
		Challenger:    models.Outcome{Won: false, LastResult: models.LastResultStayed},
		Defender:      models.Outcome{Won: true, LastResult: models.LastResultStayed},
		ChallengerNew: challenger,
		DefenderNew:   defender,
	}
}

// RejectionBlocked applies the weekly rejection soft cap.
func RejectionBlocked(rejectedThisWeek, playedThisWeek int, override bool) bool {
	return !override && playedThisWeek == 0 && rejectedThisWeek >= RejectionLimit
}

// HandicapPoints converts a category level difference into handicap points.
func HandicapPoints(levelA, levelB int) int {
	diff := levelA - levelB
	if diff < 0 {
		diff = -diff
	}
	return diff * HandicapPointsPerLevel
}
