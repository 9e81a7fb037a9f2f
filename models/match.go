package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusPlayed    MatchStatus = "played"
	MatchStatusRejected  MatchStatus = "rejected"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// OpenMatchStatuses are the statuses that block a new challenge between the same teams.
var OpenMatchStatuses = []MatchStatus{MatchStatusPending, MatchStatusAccepted}

type Match struct {
	ID               int         `json:"id" db:"id"`
	PyramidID        int         `json:"pyramid_id" db:"pyramid_id"`
	ChallengerTeamID int         `json:"challenger_team_id" db:"challenger_team_id"`
	DefenderTeamID   int         `json:"defender_team_id" db:"defender_team_id"`
	WinnerTeamID     *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	Status           MatchStatus `json:"status" db:"status"`
	EvidenceKey      *string     `json:"-" db:"evidence_key"`
	StatusChangedAt  time.Time   `json:"status_changed_at" db:"status_changed_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`

	EvidenceURL *string `json:"evidence_url,omitempty" db:"-"`
	Challenger  *Team   `json:"challenger,omitempty" db:"-"`
	Defender    *Team   `json:"defender,omitempty" db:"-"`
}

func (m *Match) IsOpen() bool {
	return m.Status == MatchStatusPending || m.Status == MatchStatusAccepted
}

// Involves reports whether the team plays in this match on either side.
func (m *Match) Involves(teamID int) bool {
	return m.ChallengerTeamID == teamID || m.DefenderTeamID == teamID
}

// Between reports whether the match is between a and b, in any direction.
func (m *Match) Between(a, b int) bool {
	return (m.ChallengerTeamID == a && m.DefenderTeamID == b) ||
		(m.ChallengerTeamID == b && m.DefenderTeamID == a)
}

// WeeklyActivity counts the matches a team played in the current and previous week.
type WeeklyActivity struct {
	TeamID   int
	ThisWeek int
	LastWeek int
}
