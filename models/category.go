package models

// Category groups teams by skill. Level is the ordinal used for handicap points.
type Category struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Level int    `json:"level" db:"level"`
}
