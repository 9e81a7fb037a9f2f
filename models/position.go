package models

import "time"

// Slot is a (row, column) cell of a pyramid, both 1-based.
type Slot struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type Position struct {
	ID           int        `json:"id" db:"id"`
	PyramidID    int        `json:"pyramid_id" db:"pyramid_id"`
	TeamID       int        `json:"team_id" db:"team_id"`
	Row          int        `json:"row" db:"row_position"`
	Col          int        `json:"col" db:"col_position"`
	Wins         int        `json:"wins" db:"wins"`
	Losses       int        `json:"losses" db:"losses"`
	LosingStreak int        `json:"losing_streak" db:"losing_streak"`
	Status       TeamStatus `json:"status" db:"status"`
	LastResult   LastResult `json:"last_result" db:"last_result"`
	Defendable   bool       `json:"defendable" db:"defendable"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

func (p *Position) Slot() Slot {
	return Slot{Row: p.Row, Col: p.Col}
}
