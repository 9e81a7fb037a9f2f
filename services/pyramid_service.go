package services

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

const defaultHistoryLimit = 100

type PyramidService interface {
	CreatePyramid(ctx context.Context, input CreatePyramidInput) (*models.Pyramid, error)
	GetPyramid(ctx context.Context, id int) (*models.Pyramid, error)
	ListPyramids(ctx context.Context, activeOnly bool) ([]*models.Pyramid, error)
	UpdatePyramid(ctx context.Context, id int, input UpdatePyramidInput) (*models.Pyramid, error)
	SetCategories(ctx context.Context, id int, categoryIDs []int) ([]*models.Category, error)
	GetPyramidView(ctx context.Context, id int) (*models.PyramidView, error)
	ListHistory(ctx context.Context, id int, limit int) ([]*models.PositionHistory, error)
}

type CreatePyramidInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	RowCount    int    `json:"row_count" validate:"required,min=1"`
	CategoryIDs []int  `json:"category_ids,omitempty"`
}

// Все поля - указатели: nil означает "не менять".
type UpdatePyramidInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	RowCount    *int    `json:"row_count,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type pyramidService struct {
	tx           repositories.Transactor
	pyramidRepo  repositories.PyramidRepository
	positionRepo repositories.PositionRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	historyRepo  repositories.HistoryRepository
	logger       *slog.Logger
}

func NewPyramidService(
	tx repositories.Transactor,
	pyramidRepo repositories.PyramidRepository,
	positionRepo repositories.PositionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	historyRepo repositories.HistoryRepository,
	logger *slog.Logger,
) PyramidService {
	return &pyramidService{
		tx:           tx,
		pyramidRepo:  pyramidRepo,
		positionRepo: positionRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		historyRepo:  historyRepo,
		logger:       logger,
	}
}

func (s *pyramidService) CreatePyramid(ctx context.Context, input CreatePyramidInput) (*models.Pyramid, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrPyramidNameRequired
	}
	if input.RowCount < 1 {
		return nil, ErrPyramidInvalidRows
	}

	pyramid := &models.Pyramid{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		RowCount:    input.RowCount,
		Active:      true,
	}
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.pyramidRepo.Create(ctx, tx, pyramid); err != nil {
			return err
		}
		if len(input.CategoryIDs) == 0 {
			return nil
		}
		return s.pyramidRepo.SetCategories(ctx, tx, pyramid.ID, input.CategoryIDs)
	})
	if err != nil {
		return nil, handleRepositoryError(err, "create pyramid %q", name)
	}
	pyramid.CategoryIDs = input.CategoryIDs

	s.logger.InfoContext(ctx, "Pyramid created", slog.Int("pyramid_id", pyramid.ID), slog.Int("row_count", pyramid.RowCount))
	return pyramid, nil
}

func (s *pyramidService) GetPyramid(ctx context.Context, id int) (*models.Pyramid, error) {
	pyramid, err := s.pyramidRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, "get pyramid %d", id)
	}
	categories, err := s.pyramidRepo.ListCategories(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err, "list categories of pyramid %d", id)
	}
	pyramid.CategoryIDs = make([]int, 0, len(categories))
	for _, c := range categories {
		pyramid.CategoryIDs = append(pyramid.CategoryIDs, c.ID)
	}
	return pyramid, nil
}

func (s *pyramidService) ListPyramids(ctx context.Context, activeOnly bool) ([]*models.Pyramid, error) {
	pyramids, err := s.pyramidRepo.List(ctx, nil, activeOnly)
	if err != nil {
		return nil, handleRepositoryError(err, "list pyramids")
	}
	if pyramids == nil {
		return []*models.Pyramid{}, nil
	}
	return pyramids, nil
}

func (s *pyramidService) UpdatePyramid(ctx context.Context, id int, input UpdatePyramidInput) (*models.Pyramid, error) {
	var pyramid *models.Pyramid
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		pyramid, err = s.pyramidRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return ErrPyramidNameRequired
			}
			pyramid.Name = name
		}
		if input.Description != nil {
			pyramid.Description = strings.TrimSpace(*input.Description)
		}
		if input.Active != nil {
			pyramid.Active = *input.Active
		}
		if input.RowCount != nil && *input.RowCount != pyramid.RowCount {
			if *input.RowCount < 1 {
				return ErrPyramidInvalidRows
			}
			occupied, err := s.positionRepo.MaxOccupiedRow(ctx, tx, id)
			if err != nil {
				return err
			}
			if *input.RowCount < occupied {
				return ErrPyramidRowsInUse
			}
			pyramid.RowCount = *input.RowCount
		}
		return s.pyramidRepo.Update(ctx, tx, pyramid)
	})
	if err != nil {
		return nil, handleRepositoryError(err, "update pyramid %d", id)
	}
	return pyramid, nil
}

func (s *pyramidService) SetCategories(ctx context.Context, id int, categoryIDs []int) ([]*models.Category, error) {
	var categories []*models.Category
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if _, err := s.pyramidRepo.GetByID(ctx, tx, id); err != nil {
			return err
		}
		if err := s.pyramidRepo.SetCategories(ctx, tx, id, categoryIDs); err != nil {
			return err
		}
		var err error
		categories, err = s.pyramidRepo.ListCategories(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, handleRepositoryError(err, "set categories of pyramid %d", id)
	}
	return categories, nil
}

// GetPyramidView loads the grid, the teams in it and the open matches concurrently.
func (s *pyramidService) GetPyramidView(ctx context.Context, id int) (*models.PyramidView, error) {
	pyramid, err := s.GetPyramid(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		positions []*models.Position
		teams     []*models.Team
		open      []*models.Match
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		positions, err = s.positionRepo.ListByPyramid(gCtx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListPositioned(gCtx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		open, err = s.matchRepo.ListByPyramid(gCtx, nil, id, models.OpenMatchStatuses...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, handleRepositoryError(err, "load view of pyramid %d", id)
	}

	byID := indexTeams(teams)
	for _, p := range positions {
		p.Team = byID[p.TeamID]
	}
	for _, m := range open {
		m.Challenger = byID[m.ChallengerTeamID]
		m.Defender = byID[m.DefenderTeamID]
	}
	return &models.PyramidView{Pyramid: pyramid, Positions: positions, OpenMatches: open}, nil
}

func (s *pyramidService) ListHistory(ctx context.Context, id int, limit int) ([]*models.PositionHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if _, err := s.pyramidRepo.GetByID(ctx, nil, id); err != nil {
		return nil, handleRepositoryError(err, "get pyramid %d", id)
	}
	history, err := s.historyRepo.ListByPyramid(ctx, nil, id, limit)
	if err != nil {
		return nil, handleRepositoryError(err, "list history of pyramid %d", id)
	}
	return history, nil
}
