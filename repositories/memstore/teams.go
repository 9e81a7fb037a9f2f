package memstore

import (
	"context"
	"sort"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type teamRepo struct{ s *Store }

func (r teamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.Create"); err != nil {
		return err
	}
	if team.Player1ID != nil && team.Player2ID != nil && *team.Player1ID == *team.Player2ID {
		return repositories.ErrTeamSamePlayer
	}
	if _, ok := r.s.st.categories[team.CategoryID]; !ok {
		return repositories.ErrTeamCategoryInvalid
	}
	for _, pid := range []*int{team.Player1ID, team.Player2ID} {
		if pid == nil {
			continue
		}
		if _, ok := r.s.st.players[*pid]; !ok {
			return repositories.ErrTeamPlayerInvalid
		}
	}
	for _, existing := range r.s.st.teams {
		if sameSeat(existing.Player1ID, team.Player1ID) || sameSeat(existing.Player2ID, team.Player2ID) {
			return repositories.ErrPlayerAlreadyInTeam
		}
	}

	team.ID = r.s.nextID()
	team.Status = models.TeamStatusIdle
	team.LastResult = models.LastResultNone
	team.Wins, team.Losses, team.LosingStreak = 0, 0, 0
	team.CreatedAt = r.s.Now()
	team.UpdatedAt = team.CreatedAt
	stored := *team
	stored.Player1, stored.Player2, stored.Category, stored.DisplayName = nil, nil, nil, ""
	r.s.st.teams[team.ID] = stored
	return nil
}

func sameSeat(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}

func (r teamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.GetByID"); err != nil {
		return nil, err
	}
	t, ok := r.s.st.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return r.s.hydrateTeam(t), nil
}

func (r teamRepo) GetByPlayer(_ context.Context, _ repositories.SQLExecutor, userID int) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.sorted() {
		if t.HasPlayer(userID) {
			return r.s.hydrateTeam(*t), nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r teamRepo) sorted() []*models.Team {
	teams := make([]*models.Team, 0, len(r.s.st.teams))
	for _, t := range r.s.st.teams {
		t := t
		teams = append(teams, &t)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams
}

func (r teamRepo) ListByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) ([]*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	teams := make([]*models.Team, 0, len(ids))
	for _, t := range r.sorted() {
		if wanted[t.ID] {
			teams = append(teams, r.s.hydrateTeam(*t))
		}
	}
	return teams, nil
}

func (r teamRepo) ListPositioned(_ context.Context, _ repositories.SQLExecutor, pyramidID int) ([]*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.ListPositioned"); err != nil {
		return nil, err
	}
	positions := positionRepo{r.s}.list(func(p models.Position) bool { return p.PyramidID == pyramidID })
	teams := make([]*models.Team, 0, len(positions))
	for _, p := range positions {
		if t, ok := r.s.st.teams[p.TeamID]; ok {
			teams = append(teams, r.s.hydrateTeam(t))
		}
	}
	return teams, nil
}

func (r teamRepo) ListEligible(_ context.Context, _ repositories.SQLExecutor, pyramidID int, unplacedOnly bool) ([]*models.EligibleTeam, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.ListEligible"); err != nil {
		return nil, err
	}
	linked := make(map[int]bool)
	for _, id := range r.s.st.pyramidCategories[pyramidID] {
		linked[id] = true
	}

	eligible := make([]*models.EligibleTeam, 0)
	for _, t := range r.sorted() {
		if !linked[t.CategoryID] {
			continue
		}
		e := &models.EligibleTeam{Team: r.s.hydrateTeam(*t)}
		placed := false
		for _, p := range r.s.st.positions {
			if p.TeamID != t.ID {
				continue
			}
			if p.PyramidID == pyramidID {
				placed = true
			}
			e.TotalWins += p.Wins
			e.TotalLosses += p.Losses
			if p.LosingStreak > e.MaxLosingStreak {
				e.MaxLosingStreak = p.LosingStreak
			}
		}
		if unplacedOnly && placed {
			continue
		}
		e.Score = e.TotalWins - e.TotalLosses
		eligible = append(eligible, e)
	}
	return eligible, nil
}

func (r teamRepo) RecordResult(_ context.Context, _ repositories.SQLExecutor, teamID int, outcome models.Outcome) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.RecordResult"); err != nil {
		return err
	}
	t, ok := r.s.st.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	applyOutcome(&t.Wins, &t.Losses, &t.LosingStreak, &t.Status, outcome)
	t.LastResult = outcome.LastResult
	t.UpdatedAt = r.s.Now()
	r.s.st.teams[teamID] = t
	return nil
}

// Delete cascades to positions and matches like the foreign keys do, and nulls the
// team in history rows.
func (r teamRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.st.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.s.st.teams, id)
	for pid, p := range r.s.st.positions {
		if p.TeamID == id {
			delete(r.s.st.positions, pid)
		}
	}
	deletedMatches := make(map[int]bool)
	for mid, m := range r.s.st.matches {
		if m.Involves(id) {
			deletedMatches[mid] = true
			delete(r.s.st.matches, mid)
		}
	}
	for i := range r.s.st.history {
		h := &r.s.st.history[i]
		if h.MatchID != nil && deletedMatches[*h.MatchID] {
			h.MatchID = nil
		}
		if h.TeamID != nil && *h.TeamID == id {
			h.TeamID = nil
		}
		if h.AffectedTeamID != nil && *h.AffectedTeamID == id {
			h.AffectedTeamID = nil
		}
	}
	return nil
}
