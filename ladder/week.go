package ladder

import (
	"time"

	"github.com/Dosada05/pyramid-ladder/models"
)

// WeekWindow returns the start of the current week (Monday 00:00 in now's location)
// and the start of the week before it.
func WeekWindow(now time.Time) (current, previous time.Time) {
	sinceMonday := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	current = time.Date(y, m, d-sinceMonday, 0, 0, 0, 0, now.Location())
	previous = current.AddDate(0, 0, -7)
	return current, previous
}

// IsActive reports whether a team kept up with the ladder: at least one match this
// week, or at least two last week.
func IsActive(a models.WeeklyActivity) bool {
	return a.ThisWeek >= 1 || a.LastWeek >= 2
}

// DemotionSlot is where a risky team at s would land when pushed down one row.
func DemotionSlot(s models.Slot) models.Slot {
	return models.Slot{Row: s.Row + 1, Col: s.Col}
}
