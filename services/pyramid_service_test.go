package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
)

func TestCreatePyramid(t *testing.T) {
	f := newFixture(t, 3)
	second := f.store.AddCategory("Segunda", 2)

	pyramid, err := f.pyramids.CreatePyramid(f.ctx, CreatePyramidInput{
		Name:        "  Liga Invierno ",
		RowCount:    5,
		CategoryIDs: []int{f.categoryID, second},
	})
	require.NoError(t, err)
	assert.Equal(t, "Liga Invierno", pyramid.Name)
	assert.True(t, pyramid.Active)

	loaded, err := f.pyramids.GetPyramid(f.ctx, pyramid.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{f.categoryID, second}, loaded.CategoryIDs)

	_, err = f.pyramids.CreatePyramid(f.ctx, CreatePyramidInput{Name: " ", RowCount: 3})
	assert.ErrorIs(t, err, ErrPyramidNameRequired)
	_, err = f.pyramids.CreatePyramid(f.ctx, CreatePyramidInput{Name: "Vacía", RowCount: 0})
	assert.ErrorIs(t, err, ErrPyramidInvalidRows)
}

func TestUpdatePyramid_RowCount(t *testing.T) {
	f := newFixture(t, 4)
	f.placed(3, 2, "Lopez", "Diaz")

	rows := 2
	_, err := f.pyramids.UpdatePyramid(f.ctx, f.pyramid.ID, UpdatePyramidInput{RowCount: &rows})
	assert.ErrorIs(t, err, ErrPyramidRowsInUse)

	rows = 3
	name := "Liga Primavera"
	pyramid, err := f.pyramids.UpdatePyramid(f.ctx, f.pyramid.ID, UpdatePyramidInput{RowCount: &rows, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 3, pyramid.RowCount)
	assert.Equal(t, "Liga Primavera", pyramid.Name)

	_, err = f.pyramids.UpdatePyramid(f.ctx, 4242, UpdatePyramidInput{Name: &name})
	assert.ErrorIs(t, err, ErrPyramidNotFound)
}

func TestSetCategories(t *testing.T) {
	f := newFixture(t, 3)
	second := f.store.AddCategory("Segunda", 2)

	categories, err := f.pyramids.SetCategories(f.ctx, f.pyramid.ID, []int{second})
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Segunda", categories[0].Name)

	_, err = f.pyramids.SetCategories(f.ctx, f.pyramid.ID, []int{second, 31337})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestGetPyramidView(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	matchID := f.challenge(g.E, g.C)

	view, err := f.pyramids.GetPyramidView(f.ctx, f.pyramid.ID)
	require.NoError(t, err)
	assert.Equal(t, f.pyramid.ID, view.Pyramid.ID)
	require.Len(t, view.Positions, 6)
	assert.Equal(t, models.Slot{Row: 1, Col: 1}, view.Positions[0].Slot())
	require.NotNil(t, view.Positions[0].Team)
	assert.Equal(t, "Alba / Arce", view.Positions[0].Team.DisplayName)

	require.Len(t, view.OpenMatches, 1)
	assert.Equal(t, matchID, view.OpenMatches[0].ID)
	assert.Equal(t, "Egea / Espino", view.OpenMatches[0].Challenger.DisplayName)
	assert.Equal(t, "Cano / Cruz", view.OpenMatches[0].Defender.DisplayName)

	_, err = f.pyramids.GetPyramidView(f.ctx, 4242)
	assert.ErrorIs(t, err, ErrPyramidNotFound)
}

func TestListHistory(t *testing.T) {
	f := newFixture(t, 3)
	g := f.grid()
	f.play(g.D, g.B, g.D)
	f.clock.Add(1)
	f.play(g.E, g.D, g.E)

	history, err := f.pyramids.ListHistory(f.ctx, f.pyramid.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, g.E.ID, *history[0].TeamID, "newest first")

	history, err = f.pyramids.ListHistory(f.ctx, f.pyramid.ID, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
