package models

import "time"

// TeamStatus is shared by teams and positions.
type TeamStatus string

const (
	TeamStatusIdle   TeamStatus = "idle"
	TeamStatusWinner TeamStatus = "winner"
	TeamStatusLooser TeamStatus = "looser"
	TeamStatusRisky  TeamStatus = "risky"
)

type LastResult string

const (
	LastResultUp     LastResult = "up"
	LastResultDown   LastResult = "down"
	LastResultStayed LastResult = "stayed"
	LastResultNone   LastResult = "none"
)

type Team struct {
	ID           int        `json:"id" db:"id"`
	Player1ID    *int       `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int       `json:"player2_id,omitempty" db:"player2_id"`
	CategoryID   int        `json:"category_id" db:"category_id"`
	Wins         int        `json:"wins" db:"wins"`
	Losses       int        `json:"losses" db:"losses"`
	Status       TeamStatus `json:"status" db:"status"`
	LosingStreak int        `json:"losing_streak" db:"losing_streak"`
	LastResult   LastResult `json:"last_result" db:"last_result"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	Player1     *Player   `json:"player1,omitempty" db:"-"`
	Player2     *Player   `json:"player2,omitempty" db:"-"`
	Category    *Category `json:"category,omitempty" db:"-"`
	DisplayName string    `json:"display_name" db:"-"`
}

// Players returns the loaded players of the team, skipping empty seats.
func (t *Team) Players() []*Player {
	players := make([]*Player, 0, 2)
	if t.Player1 != nil {
		players = append(players, t.Player1)
	}
	if t.Player2 != nil {
		players = append(players, t.Player2)
	}
	return players
}

// HasPlayer reports whether userID plays in the team.
func (t *Team) HasPlayer(userID int) bool {
	return (t.Player1ID != nil && *t.Player1ID == userID) ||
		(t.Player2ID != nil && *t.Player2ID == userID)
}

// CategoryLevel returns the level of the loaded category, or 0.
func (t *Team) CategoryLevel() int {
	if t.Category == nil {
		return 0
	}
	return t.Category.Level
}

// Outcome describes what a finished match did to one side.
type Outcome struct {
	Won        bool
	LastResult LastResult
}

// EligibleTeam is a team that may be placed in a pyramid, with totals across all
// pyramids it plays in.
type EligibleTeam struct {
	Team            *Team `json:"team"`
	TotalWins       int   `json:"total_wins"`
	TotalLosses     int   `json:"total_losses"`
	MaxLosingStreak int   `json:"max_losing_streak"`
	Score           int   `json:"score"`
}
