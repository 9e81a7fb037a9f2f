package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/notify"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

// attachTeams loads the challenger and defender of every match.
func attachTeams(ctx context.Context, teamRepo repositories.TeamRepository, matches ...*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	ids := make([]int, 0, len(matches)*2)
	for _, m := range matches {
		ids = append(ids, m.ChallengerTeamID, m.DefenderTeamID)
	}
	teams, err := teamRepo.ListByIDs(ctx, nil, ids)
	if err != nil {
		return err
	}
	byID := indexTeams(teams)
	for _, m := range matches {
		m.Challenger = byID[m.ChallengerTeamID]
		m.Defender = byID[m.DefenderTeamID]
	}
	return nil
}

// matchEvent builds the event for a match; recipients are the players of the given teams.
func matchEvent(kind models.NotificationKind, pyramid *models.Pyramid, m *models.Match, recipients ...*models.Team) notify.Event {
	event := notify.Event{
		Kind:       kind,
		PyramidID:  m.PyramidID,
		MatchID:    m.ID,
		Attacker:   m.Challenger,
		Defender:   m.Defender,
		Recipients: notify.RecipientsOf(recipients...),
	}
	if pyramid != nil {
		event.PyramidName = pyramid.Name
	}
	if m.Challenger != nil && m.Defender != nil {
		event.HandicapPoints = ladder.HandicapPoints(m.Challenger.CategoryLevel(), m.Defender.CategoryLevel())
	}
	return event
}

// dispatch hands events to the notifier. Delivery is best effort: the state change
// that raised the events is already committed.
func dispatch(ctx context.Context, notifier notify.Notifier, logger *slog.Logger, events ...notify.Event) {
	for _, e := range events {
		if err := notifier.Notify(ctx, e); err != nil {
			logger.WarnContext(ctx, "Failed to deliver notification",
				slog.String("kind", string(e.Kind)), slog.Int("pyramid_id", e.PyramidID),
				slog.Int("match_id", e.MatchID), slog.Any("error", err))
		}
	}
}

// cancelOpenMatches cancels every pending or accepted match of the team in the pyramid.
func cancelOpenMatches(ctx context.Context, tx repositories.SQLExecutor, matchRepo repositories.MatchRepository, pyramidID, teamID int, at time.Time) ([]*models.Match, error) {
	open, err := matchRepo.ListByPyramid(ctx, tx, pyramidID, models.OpenMatchStatuses...)
	if err != nil {
		return nil, err
	}
	cancelled := make([]*models.Match, 0)
	for _, match := range open {
		if !match.Involves(teamID) {
			continue
		}
		if err := matchRepo.UpdateStatus(ctx, tx, match.ID, match.Status, models.MatchStatusCancelled, at); err != nil {
			return nil, err
		}
		match.Status = models.MatchStatusCancelled
		match.StatusChangedAt = at
		cancelled = append(cancelled, match)
	}
	return cancelled, nil
}
