package models

import "time"

// Pyramid представляет экземпляр соревнования-лестницы.
type Pyramid struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	RowCount    int       `json:"row_count" db:"row_count"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	CategoryIDs []int `json:"category_ids,omitempty" db:"-"`
}

// ContainsSlot reports whether s is a valid cell of the pyramid grid.
func (p *Pyramid) ContainsSlot(s Slot) bool {
	return s.Row >= 1 && s.Row <= p.RowCount && s.Col >= 1 && s.Col <= s.Row
}

// PyramidView is the pyramid with its grid and open matches, as shown to users.
type PyramidView struct {
	Pyramid     *Pyramid    `json:"pyramid"`
	Positions   []*Position `json:"positions"`
	OpenMatches []*Match    `json:"open_matches"`
}
