package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/itbasis/go-clock"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	GetTeam(ctx context.Context, id int) (*models.Team, error)
	// DeleteTeam removes the team with its positions and matches. Each position's
	// removal is written to history first.
	DeleteTeam(ctx context.Context, id int) error
}

// Player2ID may be nil for a team still looking for a partner.
type CreateTeamInput struct {
	Player1ID  int  `json:"player1_id" validate:"required"`
	Player2ID  *int `json:"player2_id,omitempty"`
	CategoryID int  `json:"category_id" validate:"required"`
}

type teamService struct {
	tx           repositories.Transactor
	teamRepo     repositories.TeamRepository
	positionRepo repositories.PositionRepository
	historyRepo  repositories.HistoryRepository
	clock        clock.Clock
	logger       *slog.Logger
}

func NewTeamService(
	tx repositories.Transactor,
	teamRepo repositories.TeamRepository,
	positionRepo repositories.PositionRepository,
	historyRepo repositories.HistoryRepository,
	clock clock.Clock,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		tx:           tx,
		teamRepo:     teamRepo,
		positionRepo: positionRepo,
		historyRepo:  historyRepo,
		clock:        clock,
		logger:       logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	if input.Player1ID <= 0 || input.CategoryID <= 0 {
		return nil, fmt.Errorf("%w: player1_id and category_id are required", ErrValidationFailed)
	}
	if input.Player2ID != nil && *input.Player2ID == input.Player1ID {
		return nil, ErrTeamSamePlayer
	}

	player1 := input.Player1ID
	team := &models.Team{Player1ID: &player1, Player2ID: input.Player2ID, CategoryID: input.CategoryID}
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		for _, playerID := range []*int{team.Player1ID, team.Player2ID} {
			if playerID == nil {
				continue
			}
			_, err := s.teamRepo.GetByPlayer(ctx, tx, *playerID)
			if err == nil {
				return fmt.Errorf("%w: player %d", ErrPlayerAlreadyInTeam, *playerID)
			}
			if !errors.Is(err, repositories.ErrTeamNotFound) {
				return err
			}
		}
		return s.teamRepo.Create(ctx, tx, team)
	})
	if err != nil {
		return nil, handleRepositoryError(err, "create team")
	}

	s.logger.InfoContext(ctx, "Team created", slog.Int("team_id", team.ID), slog.Int("category_id", team.CategoryID))
	return s.GetTeam(ctx, team.ID)
}

func (s *teamService) GetTeam(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, "get team %d", id)
	}
	return team, nil
}

func (s *teamService) DeleteTeam(ctx context.Context, id int) error {
	removed := 0
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if _, err := s.teamRepo.GetByID(ctx, tx, id); err != nil {
			return err
		}
		positions, err := s.positionRepo.ListByTeam(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		for _, p := range positions {
			entry := &models.PositionHistory{PyramidID: &p.PyramidID, TeamID: &p.TeamID, EffectiveAt: now}
			entry.SetOld(p.Slot())
			if err := s.historyRepo.Append(ctx, tx, entry); err != nil {
				return err
			}
		}
		removed = len(positions)
		return s.teamRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return handleRepositoryError(err, "delete team %d", id)
	}

	s.logger.InfoContext(ctx, "Team deleted", slog.Int("team_id", id), slog.Int("positions_removed", removed))
	return nil
}
