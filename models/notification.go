package models

import "time"

type NotificationKind string

const (
	NotificationChallengeIssued    NotificationKind = "challenge_issued"
	NotificationChallengeAccepted  NotificationKind = "challenge_accepted"
	NotificationChallengeRejected  NotificationKind = "challenge_rejected"
	NotificationChallengeCancelled NotificationKind = "challenge_cancelled"
	NotificationTeamRisky          NotificationKind = "team_risky"
	NotificationMatchPlayed        NotificationKind = "match_played"
)

// Notification is one user's copy of an event. ViewedAt is the read marker.
type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	PyramidID *int             `json:"pyramid_id,omitempty" db:"pyramid_id"`
	MatchID   *int             `json:"match_id,omitempty" db:"match_id"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	Message   string           `json:"message" db:"message"`
	ViewedAt  *time.Time       `json:"viewed_at,omitempty" db:"viewed_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
