package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/itbasis/go-clock"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/notify"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

const sweepNotifyConcurrency = 4

// SweepReport summarizes one inactivity sweep of a pyramid.
type SweepReport struct {
	PyramidID    int `json:"pyramid_id"`
	TeamsMarked  int `json:"teams_marked"`
	EmailsSent   int `json:"emails_sent"`
	EmailsFailed int `json:"emails_failed"`
}

// SweepService marks inactive teams as risky. A team is active when it played at
// least one match this week or two last week; teams in the bottom row are never
// marked because there is no row to drop into.
type SweepService interface {
	CheckAndMarkRiskyTeams(ctx context.Context, pyramidID int) (*SweepReport, error)
	SweepActivePyramids(ctx context.Context) ([]*SweepReport, error)
}

type sweepService struct {
	tx           repositories.Transactor
	pyramidRepo  repositories.PyramidRepository
	positionRepo repositories.PositionRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	notifier     notify.Notifier
	clock        clock.Clock
	location     *time.Location
	logger       *slog.Logger
}

// NewSweepService expects a synchronous notifier so delivery failures can be counted.
func NewSweepService(
	tx repositories.Transactor,
	pyramidRepo repositories.PyramidRepository,
	positionRepo repositories.PositionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	notifier notify.Notifier,
	clock clock.Clock,
	location *time.Location,
	logger *slog.Logger,
) SweepService {
	if location == nil {
		location = time.Local
	}
	return &sweepService{
		tx:           tx,
		pyramidRepo:  pyramidRepo,
		positionRepo: positionRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		notifier:     notifier,
		clock:        clock,
		location:     location,
		logger:       logger,
	}
}

func (s *sweepService) CheckAndMarkRiskyTeams(ctx context.Context, pyramidID int) (*SweepReport, error) {
	pyramid, err := s.pyramidRepo.GetByID(ctx, nil, pyramidID)
	if err != nil {
		return nil, handleRepositoryError(err, "get pyramid %d", pyramidID)
	}

	report := &SweepReport{PyramidID: pyramidID}
	current, previous := ladder.WeekWindow(s.clock.Now().In(s.location))

	var marked []*models.Position
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		positions, err := s.positionRepo.ListByPyramid(ctx, tx, pyramidID)
		if err != nil {
			return err
		}
		activity, err := s.matchRepo.WeeklyActivity(ctx, tx, pyramidID, current, previous)
		if err != nil {
			return err
		}

		ids := make([]int, 0)
		for _, p := range positions {
			if p.Row >= pyramid.RowCount || p.Status == models.TeamStatusRisky {
				continue
			}
			if ladder.IsActive(activity[p.TeamID]) {
				continue
			}
			ids = append(ids, p.ID)
			marked = append(marked, p)
		}
		if len(ids) == 0 {
			return nil
		}
		report.TeamsMarked, err = s.positionRepo.MarkRisky(ctx, tx, ids)
		return err
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "mark risky teams of pyramid %d", pyramidID)
	}
	if len(marked) == 0 {
		return report, nil
	}

	teamIDs := make([]int, 0, len(marked))
	for _, p := range marked {
		teamIDs = append(teamIDs, p.TeamID)
	}
	teams, err := s.teamRepo.ListByIDs(ctx, nil, teamIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load risky teams for notifications", slog.Int("pyramid_id", pyramidID), slog.Any("error", err))
		report.EmailsFailed = len(marked)
		return report, nil
	}
	byID := indexTeams(teams)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepNotifyConcurrency)
	for _, p := range marked {
		team := byID[p.TeamID]
		if team == nil {
			continue
		}
		currentSlot := p.Slot()
		nextSlot := ladder.DemotionSlot(currentSlot)
		event := notify.Event{
			Kind:            models.NotificationTeamRisky,
			PyramidID:       pyramidID,
			PyramidName:     pyramid.Name,
			Team:            team,
			Recipients:      notify.RecipientsOf(team),
			CurrentPosition: &currentSlot,
			NextRowPosition: &nextSlot,
		}
		g.Go(func() error {
			err := s.notifier.Notify(gctx, event)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.EmailsFailed++
				s.logger.WarnContext(ctx, "Failed to notify risky team",
					slog.Int("pyramid_id", pyramidID), slog.Int("team_id", event.Team.ID), slog.Any("error", err))
				return nil
			}
			report.EmailsSent++
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "Risky sweep finished",
		slog.Int("pyramid_id", pyramidID), slog.Int("teams_marked", report.TeamsMarked),
		slog.Int("emails_sent", report.EmailsSent), slog.Int("emails_failed", report.EmailsFailed))
	return report, nil
}

func (s *sweepService) SweepActivePyramids(ctx context.Context) ([]*SweepReport, error) {
	pyramids, err := s.pyramidRepo.List(ctx, nil, true)
	if err != nil {
		return nil, handleRepositoryError(err, "list active pyramids")
	}

	reports := make([]*SweepReport, 0, len(pyramids))
	var errs []error
	for _, p := range pyramids {
		report, err := s.CheckAndMarkRiskyTeams(ctx, p.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("pyramid %d: %w", p.ID, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}
