package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Mailer sends one HTML message.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type emailData struct {
	PyramidName     string
	Attacker        string
	Defender        string
	Team            string
	Message         string
	HandicapPoints  int
	CurrentPosition string
	NextRowPosition string
	Link            string
}

// EmailSink renders the event's template and mails every recipient with an address.
type EmailSink struct {
	mailer    Mailer
	publicURL string
}

func NewEmailSink(mailer Mailer, publicURL string) *EmailSink {
	return &EmailSink{mailer: mailer, publicURL: publicURL}
}

func templateName(kind models.NotificationKind) string {
	switch kind {
	case models.NotificationTeamRisky:
		return "team_risky.html"
	case models.NotificationMatchPlayed:
		return "match_played.html"
	default:
		return "challenge.html"
	}
}

// Render builds the HTML body for the event.
func (s *EmailSink) Render(event Event) (string, error) {
	data := emailData{
		PyramidName:     event.PyramidName,
		Attacker:        ladder.TeamName(event.Attacker),
		Defender:        ladder.TeamName(event.Defender),
		Team:            ladder.TeamName(event.Team),
		Message:         Message(event),
		HandicapPoints:  event.HandicapPoints,
		CurrentPosition: slotText(event.CurrentPosition),
		NextRowPosition: slotText(event.NextRowPosition),
		Link:            fmt.Sprintf("%s/pyramids/%d", s.publicURL, event.PyramidID),
	}

	var body bytes.Buffer
	name := templateName(event.Kind)
	if err := emailTemplates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return body.String(), nil
}

func (s *EmailSink) Notify(ctx context.Context, event Event) error {
	to := make([]string, 0, len(event.Recipients))
	for _, p := range event.Recipients {
		if p.Email != "" {
			to = append(to, p.Email)
		}
	}
	if len(to) == 0 {
		return nil
	}

	body, err := s.Render(event)
	if err != nil {
		return err
	}

	subject := Subject(event)
	var errs []error
	for _, addr := range to {
		if err := s.mailer.Send(ctx, []string{addr}, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("email %s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}
