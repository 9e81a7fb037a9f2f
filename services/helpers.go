package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID int
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

var repoErrors = []struct {
	repo    error
	service error
}{
	{repositories.ErrPyramidNotFound, ErrPyramidNotFound},
	{repositories.ErrPyramidInvalidRows, ErrPyramidInvalidRows},
	{repositories.ErrPyramidCategoryInvalid, ErrCategoryNotFound},
	{repositories.ErrPositionNotFound, ErrPositionNotFound},
	{repositories.ErrSlotOccupied, ErrSlotOccupied},
	{repositories.ErrTeamAlreadyPositioned, ErrTeamAlreadyPositioned},
	{repositories.ErrSlotOutOfGrid, ErrSlotOutOfGrid},
	{repositories.ErrPositionTeamInvalid, ErrTeamNotFound},
	{repositories.ErrPositionPyramidInvalid, ErrPyramidNotFound},
	{repositories.ErrTeamNotFound, ErrTeamNotFound},
	{repositories.ErrPlayerAlreadyInTeam, ErrPlayerAlreadyInTeam},
	{repositories.ErrTeamSamePlayer, ErrTeamSamePlayer},
	{repositories.ErrTeamPlayerInvalid, ErrPlayerNotFound},
	{repositories.ErrTeamCategoryInvalid, ErrCategoryNotFound},
	{repositories.ErrMatchNotFound, ErrMatchNotFound},
	{repositories.ErrMatchStatusConflict, ErrConcurrentUpdate},
	{repositories.ErrMatchTeamsInvalid, ErrValidationFailed},
	{repositories.ErrMatchWinnerInvalid, ErrInvalidWinner},
	{repositories.ErrMatchPyramidInvalid, ErrPyramidNotFound},
	{repositories.ErrNotificationNotFound, ErrNotificationNotFound},
}

// handleRepositoryError wraps a repository error with the matching service error so
// handlers only need to know about the services package.
func handleRepositoryError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	for _, m := range repoErrors {
		if errors.Is(err, m.repo) {
			return fmt.Errorf("%w: %s: %w", m.service, msg, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// indexTeams keys teams by id.
func indexTeams(teams []*models.Team) map[int]*models.Team {
	byID := make(map[int]*models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	return byID
}
