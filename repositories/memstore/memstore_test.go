package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

func seedTeam(t *testing.T, s *Store, categoryID int, surname string) int {
	t.Helper()
	p1 := s.AddPlayer(models.Player{PaternalSurname: surname})
	p2 := s.AddPlayer(models.Player{PaternalSurname: surname + "z"})
	return s.AddTeam(categoryID, &p1, &p2)
}

func TestPositions_CreateAssignsFreshIDs(t *testing.T) {
	ctx := context.Background()
	s := New()
	category := s.AddCategory("Primera", 1)
	pyramid := &models.Pyramid{Name: "Liga", RowCount: 2, Active: true}
	require.NoError(t, s.Pyramids().Create(ctx, nil, pyramid))
	first := seedTeam(t, s, category, "Alba")
	second := seedTeam(t, s, category, "Bravo")

	top := &models.Position{PyramidID: pyramid.ID, TeamID: first, Row: 1, Col: 1}
	require.NoError(t, s.Positions().Create(ctx, nil, top))

	clash := &models.Position{PyramidID: pyramid.ID, TeamID: second, Row: 1, Col: 1}
	assert.ErrorIs(t, s.Positions().Create(ctx, nil, clash), repositories.ErrSlotOccupied)
	assert.Zero(t, clash.ID)

	below := &models.Position{PyramidID: pyramid.ID, TeamID: second, Row: 2, Col: 1}
	require.NoError(t, s.Positions().Create(ctx, nil, below))

	assert.NotZero(t, top.ID)
	assert.Greater(t, below.ID, top.ID)
	assert.Greater(t, top.ID, second, "position ids come from the shared sequence")
	assert.Equal(t, models.TeamStatusIdle, below.Status)

	stored, err := s.Positions().GetByTeam(ctx, nil, pyramid.ID, second)
	require.NoError(t, err)
	assert.Equal(t, below.ID, stored.ID)
	assert.Equal(t, models.Slot{Row: 2, Col: 1}, stored.Slot())
	assert.NoError(t, s.CheckGrid())
}

func TestWithinTx_RestoresOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	category := s.AddCategory("Primera", 1)
	pyramid := &models.Pyramid{Name: "Liga", RowCount: 1, Active: true}
	require.NoError(t, s.Pyramids().Create(ctx, nil, pyramid))
	team := seedTeam(t, s, category, "Alba")

	err := s.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.Positions().Create(ctx, tx, &models.Position{PyramidID: pyramid.ID, TeamID: team, Row: 1, Col: 1}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = s.Positions().GetByTeam(ctx, nil, pyramid.ID, team)
	assert.ErrorIs(t, err, repositories.ErrPositionNotFound)
}
