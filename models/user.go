package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

// Player is a registered user who can be paired into a team.
type Player struct {
	ID              int       `json:"id" db:"id"`
	PaternalSurname string    `json:"paternal_surname" db:"paternal_surname"`
	MaternalSurname string    `json:"maternal_surname" db:"maternal_surname"`
	Nickname        *string   `json:"nickname,omitempty" db:"nickname"`
	Email           string    `json:"-" db:"email"`
	Role            UserRole  `json:"role" db:"role"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// HasNickname reports whether the player set a non-empty nickname.
func (p *Player) HasNickname() bool {
	return p != nil && p.Nickname != nil && *p.Nickname != ""
}
