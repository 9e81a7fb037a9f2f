package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
)

func TestEligibility(t *testing.T) {
	f := newFixture(t, 3)
	a := f.placed(1, 1, "Alba", "Arce")
	b := f.placed(2, 1, "Bravo", "Bello")
	f.play(b, a, b)
	unplaced := f.newTeam("Ugarte", "Urbina")
	f.newTeamInCategory(f.store.AddCategory("Segunda", 2), "Otero", "Olmo")

	svc := NewEligibilityService(f.store.Teams(), discardLogger())

	all := svc.ListEligibleTeams(f.ctx, f.pyramid.ID)
	require.Len(t, all, 3)
	byID := make(map[int]*models.EligibleTeam, len(all))
	for _, e := range all {
		byID[e.Team.ID] = e
	}
	assert.Equal(t, 1, byID[b.ID].TotalWins)
	assert.Equal(t, 1, byID[b.ID].Score)
	assert.Equal(t, 1, byID[a.ID].TotalLosses)
	assert.Equal(t, -1, byID[a.ID].Score)
	assert.Equal(t, 1, byID[a.ID].MaxLosingStreak)
	assert.Equal(t, 0, byID[unplaced.ID].Score)

	free := svc.ListUnplacedEligibleTeams(f.ctx, f.pyramid.ID)
	require.Len(t, free, 1)
	assert.Equal(t, unplaced.ID, free[0].Team.ID)
	assert.Equal(t, "Ugarte / Urbina", free[0].Team.DisplayName)
}

func TestEligibility_FailureYieldsEmptyList(t *testing.T) {
	f := newFixture(t, 3)
	f.newTeam("Ugarte", "Urbina")
	svc := NewEligibilityService(f.store.Teams(), discardLogger())

	f.store.FailOn("teams.ListEligible", errors.New("connection reset"))
	teams := svc.ListEligibleTeams(f.ctx, f.pyramid.ID)
	assert.NotNil(t, teams)
	assert.Empty(t, teams)

	assert.Len(t, svc.ListEligibleTeams(f.ctx, f.pyramid.ID), 1)
}
