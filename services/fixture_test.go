package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/notify"
	"github.com/Dosada05/pyramid-ladder/repositories/memstore"
)

// Wednesday 14 October 2026, 10:00 UTC.
var fixtureNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) kinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]models.NotificationKind, 0, len(n.events))
	for _, e := range n.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *memstore.Store
	clock      *clock.Mock
	notifier   *recordingNotifier
	categoryID int
	pyramid    *models.Pyramid

	positions PositionService
	matches   MatchService
	sweep     SweepService
	teams     TeamService
	pyramids  PyramidService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, rows int) *fixture {
	t.Helper()
	store := memstore.New()
	clk := clock.NewMock()
	clk.Set(fixtureNow)
	store.Now = clk.Now
	notifier := &recordingNotifier{}
	logger := discardLogger()

	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		clock:      clk,
		notifier:   notifier,
		categoryID: store.AddCategory("Primera", 1),
	}

	f.pyramid = &models.Pyramid{Name: "Liga Otoño", RowCount: rows, Active: true}
	require.NoError(t, store.Pyramids().Create(f.ctx, nil, f.pyramid))
	require.NoError(t, store.Pyramids().SetCategories(f.ctx, nil, f.pyramid.ID, []int{f.categoryID}))

	f.positions = NewPositionService(store.Transactor(), store.Pyramids(), store.Positions(), store.Teams(),
		store.Matches(), store.History(), notifier, clk, logger)
	f.matches = NewMatchService(store.Transactor(), store.Pyramids(), store.Positions(), store.Teams(),
		store.Matches(), store.History(), nil, notifier, clk, time.UTC, logger)
	f.sweep = NewSweepService(store.Transactor(), store.Pyramids(), store.Positions(), store.Teams(),
		store.Matches(), notifier, clk, time.UTC, logger)
	f.teams = NewTeamService(store.Transactor(), store.Teams(), store.Positions(), store.History(), clk, logger)
	f.pyramids = NewPyramidService(store.Transactor(), store.Pyramids(), store.Positions(), store.Teams(),
		store.Matches(), store.History(), logger)
	return f
}

// seededTeam is a team and the player acting for it.
type seededTeam struct {
	ID    int
	Actor Actor
}

func (f *fixture) newTeam(surname1, surname2 string) seededTeam {
	return f.newTeamInCategory(f.categoryID, surname1, surname2)
}

func (f *fixture) newTeamInCategory(categoryID int, surname1, surname2 string) seededTeam {
	p1 := f.store.AddPlayer(models.Player{PaternalSurname: surname1, Email: surname1 + "@example.com"})
	p2 := f.store.AddPlayer(models.Player{PaternalSurname: surname2, Email: surname2 + "@example.com"})
	id := f.store.AddTeam(categoryID, &p1, &p2)
	return seededTeam{ID: id, Actor: Actor{UserID: p1, Role: models.RolePlayer}}
}

// placed seeds a team directly into the grid.
func (f *fixture) placed(row, col int, surname1, surname2 string) seededTeam {
	team := f.newTeam(surname1, surname2)
	p := &models.Position{PyramidID: f.pyramid.ID, TeamID: team.ID, Row: row, Col: col, Defendable: true}
	require.NoError(f.t, f.store.Positions().Create(f.ctx, nil, p))
	return team
}

func (f *fixture) slotOf(teamID int) models.Slot {
	p, err := f.store.Positions().GetByTeam(f.ctx, nil, f.pyramid.ID, teamID)
	require.NoError(f.t, err)
	return p.Slot()
}

func (f *fixture) position(teamID int) *models.Position {
	p, err := f.store.Positions().GetByTeam(f.ctx, nil, f.pyramid.ID, teamID)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) team(teamID int) *models.Team {
	team, err := f.store.Teams().GetByID(f.ctx, nil, teamID)
	require.NoError(f.t, err)
	return team
}

func (f *fixture) history() []*models.PositionHistory {
	entries, err := f.store.History().ListByPyramid(f.ctx, nil, f.pyramid.ID, 0)
	require.NoError(f.t, err)
	return entries
}

func (f *fixture) matchStatus(matchID int) models.MatchStatus {
	m, err := f.store.Matches().GetByID(f.ctx, nil, matchID, false)
	require.NoError(f.t, err)
	return m.Status
}

var admin = Actor{UserID: 9999, Role: models.RoleAdmin}

// challenge creates a match and returns its id.
func (f *fixture) challenge(challenger, defender seededTeam) int {
	m, err := f.matches.CreateMatch(f.ctx, challenger.Actor, f.pyramid.ID, defender.ID)
	require.NoError(f.t, err)
	return m.ID
}

// play creates, accepts and completes a match.
func (f *fixture) play(challenger, defender seededTeam, winner seededTeam) int {
	id := f.challenge(challenger, defender)
	_, err := f.matches.AcceptMatch(f.ctx, defender.Actor, id)
	require.NoError(f.t, err)
	_, err = f.matches.CompleteMatch(f.ctx, challenger.Actor, id, winner.ID)
	require.NoError(f.t, err)
	return id
}

func intp(v int) *int { return &v }
