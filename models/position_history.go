package models

import "time"

// PositionHistory is an append-only audit record of a position change. A nil New*
// pair means the team left the grid; a nil Old* pair means it entered it.
type PositionHistory struct {
	ID             int       `json:"id" db:"id"`
	PyramidID      *int      `json:"pyramid_id,omitempty" db:"pyramid_id"`
	MatchID        *int      `json:"match_id,omitempty" db:"match_id"`
	TeamID         *int      `json:"team_id,omitempty" db:"team_id"`
	AffectedTeamID *int      `json:"affected_team_id,omitempty" db:"affected_team_id"`
	OldRow         *int      `json:"old_row,omitempty" db:"old_row"`
	OldCol         *int      `json:"old_col,omitempty" db:"old_col"`
	NewRow         *int      `json:"new_row,omitempty" db:"new_row"`
	NewCol         *int      `json:"new_col,omitempty" db:"new_col"`
	AffectedOldRow *int      `json:"affected_old_row,omitempty" db:"affected_old_row"`
	AffectedOldCol *int      `json:"affected_old_col,omitempty" db:"affected_old_col"`
	AffectedNewRow *int      `json:"affected_new_row,omitempty" db:"affected_new_row"`
	AffectedNewCol *int      `json:"affected_new_col,omitempty" db:"affected_new_col"`
	EffectiveAt    time.Time `json:"effective_at" db:"effective_at"`
}

// SetOld, SetNew, SetAffectedOld and SetAffectedNew fill a coordinate pair from a slot.
func (h *PositionHistory) SetOld(s Slot) { h.OldRow, h.OldCol = intPtr(s.Row), intPtr(s.Col) }

func (h *PositionHistory) SetNew(s Slot) { h.NewRow, h.NewCol = intPtr(s.Row), intPtr(s.Col) }

func (h *PositionHistory) SetAffectedOld(s Slot) {
	h.AffectedOldRow, h.AffectedOldCol = intPtr(s.Row), intPtr(s.Col)
}

func (h *PositionHistory) SetAffectedNew(s Slot) {
	h.AffectedNewRow, h.AffectedNewCol = intPtr(s.Row), intPtr(s.Col)
}

func intPtr(v int) *int { return &v }
