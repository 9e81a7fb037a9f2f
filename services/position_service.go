package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/itbasis/go-clock"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/notify"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

// PositionService lets admins place, move and remove teams in a pyramid grid. Every
// change writes position history in the same transaction.
type PositionService interface {
	SetTeamInPosition(ctx context.Context, pyramidID, teamID int, slot models.Slot) (*models.Position, error)
	MoveTeamPosition(ctx context.Context, pyramidID, teamID int, slot models.Slot) (*models.Position, error)
	RemoveTeamFromPosition(ctx context.Context, positionID int) error
}

type positionService struct {
	tx           repositories.Transactor
	pyramidRepo  repositories.PyramidRepository
	positionRepo repositories.PositionRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	historyRepo  repositories.HistoryRepository
	notifier     notify.Notifier
	clock        clock.Clock
	logger       *slog.Logger
}

func NewPositionService(
	tx repositories.Transactor,
	pyramidRepo repositories.PyramidRepository,
	positionRepo repositories.PositionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	historyRepo repositories.HistoryRepository,
	notifier notify.Notifier,
	clock clock.Clock,
	logger *slog.Logger,
) PositionService {
	return &positionService{
		tx:           tx,
		pyramidRepo:  pyramidRepo,
		positionRepo: positionRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		historyRepo:  historyRepo,
		notifier:     notifier,
		clock:        clock,
		logger:       logger,
	}
}

func (s *positionService) gridPyramid(ctx context.Context, pyramidID int, slot models.Slot) (*models.Pyramid, error) {
	pyramid, err := s.pyramidRepo.GetByID(ctx, nil, pyramidID)
	if err != nil {
		return nil, handleRepositoryError(err, "get pyramid %d", pyramidID)
	}
	if !pyramid.ContainsSlot(slot) {
		return nil, fmt.Errorf("%w: row %d col %d in a pyramid of %d rows", ErrSlotOutOfGrid, slot.Row, slot.Col, pyramid.RowCount)
	}
	return pyramid, nil
}

func (s *positionService) SetTeamInPosition(ctx context.Context, pyramidID, teamID int, slot models.Slot) (*models.Position, error) {
	pyramid, err := s.gridPyramid(ctx, pyramidID, slot)
	if err != nil {
		return nil, err
	}
	if _, err := s.teamRepo.GetByID(ctx, nil, teamID); err != nil {
		return nil, handleRepositoryError(err, "get team %d", teamID)
	}

	var (
		result    *models.Position
		displaced int
		cancelled []*models.Match
	)
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if _, err := s.positionRepo.GetByTeam(ctx, tx, pyramidID, teamID); err == nil {
			return ErrTeamAlreadyPositioned
		} else if !errors.Is(err, repositories.ErrPositionNotFound) {
			return err
		}

		now := s.clock.Now()
		occupant, err := s.positionRepo.GetBySlot(ctx, tx, pyramidID, slot)
		if errors.Is(err, repositories.ErrPositionNotFound) {
			position := &models.Position{PyramidID: pyramidID, TeamID: teamID, Row: slot.Row, Col: slot.Col, Defendable: true}
			if err := s.positionRepo.Create(ctx, tx, position); err != nil {
				return err
			}
			entry := &models.PositionHistory{PyramidID: &pyramidID, TeamID: &teamID, EffectiveAt: now}
			entry.SetNew(slot)
			result = position
			return s.historyRepo.Append(ctx, tx, entry)
		}
		if err != nil {
			return err
		}

		displaced = occupant.TeamID
		out := &models.PositionHistory{PyramidID: &pyramidID, TeamID: &displaced, AffectedTeamID: &teamID, EffectiveAt: now}
		out.SetOld(slot)
		out.SetAffectedNew(slot)
		if err := s.historyRepo.Append(ctx, tx, out); err != nil {
			return err
		}
		if err := s.positionRepo.ReplaceTeam(ctx, tx, occupant.ID, teamID); err != nil {
			return err
		}
		in := &models.PositionHistory{PyramidID: &pyramidID, TeamID: &teamID, AffectedTeamID: &displaced, EffectiveAt: now}
		in.SetNew(slot)
		in.SetAffectedOld(slot)
		if err := s.historyRepo.Append(ctx, tx, in); err != nil {
			return err
		}

		cancelled, err = cancelOpenMatches(ctx, tx, s.matchRepo, pyramidID, displaced, now)
		if err != nil {
			return err
		}
		result, err = s.positionRepo.GetByID(ctx, tx, occupant.ID)
		return err
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "place team %d at row %d col %d of pyramid %d", teamID, slot.Row, slot.Col, pyramidID)
	}

	if displaced != 0 {
		s.logger.InfoContext(ctx, "Team displaced from position",
			slog.Int("pyramid_id", pyramidID), slog.Int("team_id", displaced), slog.Int("incoming_team_id", teamID))
	}
	s.notifyCancelled(ctx, pyramid, cancelled, "El equipo fue reemplazado en la pirámide")
	return result, nil
}

func (s *positionService) MoveTeamPosition(ctx context.Context, pyramidID, teamID int, slot models.Slot) (*models.Position, error) {
	if _, err := s.gridPyramid(ctx, pyramidID, slot); err != nil {
		return nil, err
	}

	var result *models.Position
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		position, err := s.positionRepo.GetByTeam(ctx, tx, pyramidID, teamID)
		if err != nil {
			return err
		}
		if position.Slot() == slot {
			result = position
			return nil
		}

		if occupant, err := s.positionRepo.GetBySlot(ctx, tx, pyramidID, slot); err == nil && occupant.TeamID != teamID {
			return ErrSlotOccupied
		} else if err != nil && !errors.Is(err, repositories.ErrPositionNotFound) {
			return err
		}

		old := position.Slot()
		if err := s.positionRepo.Move(ctx, tx, position.ID, slot); err != nil {
			return err
		}
		entry := &models.PositionHistory{PyramidID: &pyramidID, TeamID: &teamID, EffectiveAt: s.clock.Now()}
		entry.SetOld(old)
		entry.SetNew(slot)
		if err := s.historyRepo.Append(ctx, tx, entry); err != nil {
			return err
		}
		position.Row, position.Col = slot.Row, slot.Col
		result = position
		return nil
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "move team %d to row %d col %d of pyramid %d", teamID, slot.Row, slot.Col, pyramidID)
	}
	return result, nil
}

func (s *positionService) RemoveTeamFromPosition(ctx context.Context, positionID int) error {
	var (
		pyramidID int
		cancelled []*models.Match
	)
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		position, err := s.positionRepo.GetByID(ctx, tx, positionID)
		if err != nil {
			return err
		}
		pyramidID = position.PyramidID
		now := s.clock.Now()

		entry := &models.PositionHistory{PyramidID: &position.PyramidID, TeamID: &position.TeamID, EffectiveAt: now}
		entry.SetOld(position.Slot())
		if err := s.historyRepo.Append(ctx, tx, entry); err != nil {
			return err
		}
		cancelled, err = cancelOpenMatches(ctx, tx, s.matchRepo, position.PyramidID, position.TeamID, now)
		if err != nil {
			return err
		}
		return s.positionRepo.Delete(ctx, tx, position.ID)
	})
	if txErr != nil {
		return handleRepositoryError(txErr, "remove position %d", positionID)
	}

	if len(cancelled) > 0 {
		pyramid, err := s.pyramidRepo.GetByID(ctx, nil, pyramidID)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to load pyramid for notifications", slog.Int("pyramid_id", pyramidID), slog.Any("error", err))
			return nil
		}
		s.notifyCancelled(ctx, pyramid, cancelled, "El equipo fue retirado de la pirámide")
	}
	return nil
}

func (s *positionService) notifyCancelled(ctx context.Context, pyramid *models.Pyramid, cancelled []*models.Match, reason string) {
	if len(cancelled) == 0 {
		return
	}
	if err := attachTeams(ctx, s.teamRepo, cancelled...); err != nil {
		s.logger.WarnContext(ctx, "Failed to load teams for notifications", slog.Int("pyramid_id", pyramid.ID), slog.Any("error", err))
		return
	}
	events := make([]notify.Event, 0, len(cancelled))
	for _, m := range cancelled {
		e := matchEvent(models.NotificationChallengeCancelled, pyramid, m, m.Challenger, m.Defender)
		e.Context = reason
		events = append(events, e)
	}
	dispatch(ctx, s.notifier, s.logger, events...)
}
