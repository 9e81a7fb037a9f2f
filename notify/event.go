// Package notify delivers ladder events to players: a row in their inbox, a message
// on the pyramid's live channel and an email. Delivery is best effort; callers log
// failures and never undo the state change that raised the event.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
)

// Event is one thing that happened in a pyramid. Attacker and Defender are set for
// match events, Team, CurrentPosition and NextRowPosition for TeamRisky.
type Event struct {
	Kind            models.NotificationKind
	PyramidID       int
	PyramidName     string
	MatchID         int
	Attacker        *models.Team
	Defender        *models.Team
	Team            *models.Team
	Recipients      []*models.Player
	HandicapPoints  int
	CurrentPosition *models.Slot
	NextRowPosition *models.Slot
	// Context explains the event, for example which pairing was accepted when a
	// challenge is cancelled.
	Context string
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// RecipientsOf collects the players of the given teams, skipping empty seats and
// duplicates.
func RecipientsOf(teams ...*models.Team) []*models.Player {
	seen := make(map[int]bool)
	recipients := make([]*models.Player, 0, len(teams)*2)
	for _, t := range teams {
		if t == nil {
			continue
		}
		for _, p := range t.Players() {
			if !seen[p.ID] {
				seen[p.ID] = true
				recipients = append(recipients, p)
			}
		}
	}
	return recipients
}

func (e Event) matchID() *int {
	if e.MatchID == 0 {
		return nil
	}
	id := e.MatchID
	return &id
}

func slotText(s *models.Slot) string {
	if s == nil {
		return "?"
	}
	return fmt.Sprintf("fila %d, columna %d", s.Row, s.Col)
}

// Subject is the short title used for emails.
func Subject(e Event) string {
	switch e.Kind {
	case models.NotificationChallengeIssued:
		return "Nuevo reto en " + e.PyramidName
	case models.NotificationChallengeAccepted:
		return "Reto aceptado en " + e.PyramidName
	case models.NotificationChallengeRejected:
		return "Reto rechazado en " + e.PyramidName
	case models.NotificationChallengeCancelled:
		return "Reto cancelado en " + e.PyramidName
	case models.NotificationTeamRisky:
		return "Tu equipo está en riesgo en " + e.PyramidName
	case models.NotificationMatchPlayed:
		return "Resultado registrado en " + e.PyramidName
	default:
		return "Aviso de " + e.PyramidName
	}
}

// Message is the one-line text stored in the inbox.
func Message(e Event) string {
	attacker, defender := ladder.TeamName(e.Attacker), ladder.TeamName(e.Defender)
	var b strings.Builder
	switch e.Kind {
	case models.NotificationChallengeIssued:
		fmt.Fprintf(&b, "%s retó a %s", attacker, defender)
	case models.NotificationChallengeAccepted:
		fmt.Fprintf(&b, "%s aceptó el reto de %s", defender, attacker)
	case models.NotificationChallengeRejected:
		fmt.Fprintf(&b, "%s rechazó el reto de %s", defender, attacker)
	case models.NotificationChallengeCancelled:
		fmt.Fprintf(&b, "Se canceló el reto de %s a %s", attacker, defender)
	case models.NotificationTeamRisky:
		fmt.Fprintf(&b, "%s está en riesgo: puede bajar de %s a %s",
			ladder.TeamName(e.Team), slotText(e.CurrentPosition), slotText(e.NextRowPosition))
	case models.NotificationMatchPlayed:
		fmt.Fprintf(&b, "Se registró el resultado de %s contra %s", attacker, defender)
	default:
		b.WriteString(string(e.Kind))
	}
	if e.HandicapPoints > 0 {
		fmt.Fprintf(&b, " (ventaja de %d puntos)", e.HandicapPoints)
	}
	if e.Context != "" {
		b.WriteString(". " + e.Context)
	}
	return b.String()
}
