package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

// EligibilityService lists the teams an admin may place in a pyramid. It never fails:
// lookup errors are logged and yield an empty list.
type EligibilityService interface {
	ListEligibleTeams(ctx context.Context, pyramidID int) []*models.EligibleTeam
	ListUnplacedEligibleTeams(ctx context.Context, pyramidID int) []*models.EligibleTeam
}

type eligibilityService struct {
	teamRepo repositories.TeamRepository
	logger   *slog.Logger
}

func NewEligibilityService(teamRepo repositories.TeamRepository, logger *slog.Logger) EligibilityService {
	return &eligibilityService{teamRepo: teamRepo, logger: logger}
}

func (s *eligibilityService) ListEligibleTeams(ctx context.Context, pyramidID int) []*models.EligibleTeam {
	return s.list(ctx, pyramidID, false)
}

func (s *eligibilityService) ListUnplacedEligibleTeams(ctx context.Context, pyramidID int) []*models.EligibleTeam {
	return s.list(ctx, pyramidID, true)
}

func (s *eligibilityService) list(ctx context.Context, pyramidID int, unplacedOnly bool) []*models.EligibleTeam {
	teams, err := s.teamRepo.ListEligible(ctx, nil, pyramidID, unplacedOnly)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list eligible teams",
			slog.Int("pyramid_id", pyramidID), slog.Bool("unplaced_only", unplacedOnly), slog.Any("error", err))
		return []*models.EligibleTeam{}
	}
	if teams == nil {
		return []*models.EligibleTeam{}
	}
	return teams
}
