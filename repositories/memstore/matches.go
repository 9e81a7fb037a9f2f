package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type matchRepo struct{ s *Store }

func (r matchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("matches.Create"); err != nil {
		return err
	}
	if match.ChallengerTeamID == match.DefenderTeamID {
		return repositories.ErrMatchTeamsInvalid
	}
	if _, ok := r.s.st.pyramids[match.PyramidID]; !ok {
		return repositories.ErrMatchPyramidInvalid
	}
	for _, id := range []int{match.ChallengerTeamID, match.DefenderTeamID} {
		if _, ok := r.s.st.teams[id]; !ok {
			return repositories.ErrMatchTeamsInvalid
		}
	}
	if match.Status == "" {
		match.Status = models.MatchStatusPending
	}
	match.ID = r.s.nextID()
	match.CreatedAt = r.s.Now()
	match.UpdatedAt = match.CreatedAt
	match.StatusChangedAt = match.CreatedAt
	stored := *match
	stored.Challenger, stored.Defender, stored.EvidenceURL = nil, nil, nil
	r.s.st.matches[match.ID] = stored
	return nil
}

func (r matchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int, _ bool) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("matches.GetByID"); err != nil {
		return nil, err
	}
	m, ok := r.s.st.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r matchRepo) list(match func(models.Match) bool) []*models.Match {
	matches := make([]*models.Match, 0)
	for _, m := range r.s.st.matches {
		if match(m) {
			m := m
			matches = append(matches, &m)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
	return matches
}

func (r matchRepo) ListByPyramid(_ context.Context, _ repositories.SQLExecutor, pyramidID int, statuses ...models.MatchStatus) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("matches.ListByPyramid"); err != nil {
		return nil, err
	}
	return r.list(func(m models.Match) bool {
		if m.PyramidID != pyramidID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if m.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r matchRepo) ListPendingAgainst(_ context.Context, _ repositories.SQLExecutor, pyramidID, defenderTeamID, exceptMatchID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matches := r.list(func(m models.Match) bool {
		return m.PyramidID == pyramidID && m.DefenderTeamID == defenderTeamID &&
			m.Status == models.MatchStatusPending && m.ID != exceptMatchID
	})
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r matchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.MatchStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("matches.UpdateStatus"); err != nil {
		return err
	}
	m, ok := r.s.st.matches[id]
	if !ok || m.Status != from {
		return repositories.ErrMatchStatusConflict
	}
	m.Status = to
	m.StatusChangedAt = at
	m.UpdatedAt = r.s.Now()
	r.s.st.matches[id] = m
	return nil
}

func (r matchRepo) Complete(_ context.Context, _ repositories.SQLExecutor, id, winnerTeamID int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("matches.Complete"); err != nil {
		return err
	}
	m, ok := r.s.st.matches[id]
	if !ok || m.Status != models.MatchStatusAccepted {
		return repositories.ErrMatchStatusConflict
	}
	if !m.Involves(winnerTeamID) {
		return repositories.ErrMatchWinnerInvalid
	}
	m.Status = models.MatchStatusPlayed
	m.WinnerTeamID = &winnerTeamID
	m.StatusChangedAt = at
	m.UpdatedAt = r.s.Now()
	r.s.st.matches[id] = m
	return nil
}

func (r matchRepo) SetEvidence(_ context.Context, _ repositories.SQLExecutor, id int, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.EvidenceKey = &key
	m.UpdatedAt = r.s.Now()
	r.s.st.matches[id] = m
	return nil
}

func (r matchRepo) CountRejectedBy(_ context.Context, _ repositories.SQLExecutor, teamID int, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.list(func(m models.Match) bool {
		return m.DefenderTeamID == teamID && m.Status == models.MatchStatusRejected && !m.StatusChangedAt.Before(since)
	})), nil
}

func (r matchRepo) CountPlayedBy(_ context.Context, _ repositories.SQLExecutor, teamID int, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.list(func(m models.Match) bool {
		return m.Involves(teamID) && m.Status == models.MatchStatusPlayed && !m.StatusChangedAt.Before(since)
	})), nil
}

func (r matchRepo) WeeklyActivity(_ context.Context, _ repositories.SQLExecutor, pyramidID int, current, previous time.Time) (map[int]models.WeeklyActivity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("matches.WeeklyActivity"); err != nil {
		return nil, err
	}
	activity := make(map[int]models.WeeklyActivity)
	for _, m := range r.s.st.matches {
		if m.PyramidID != pyramidID || m.Status != models.MatchStatusPlayed || m.StatusChangedAt.Before(previous) {
			continue
		}
		for _, teamID := range []int{m.ChallengerTeamID, m.DefenderTeamID} {
			a := activity[teamID]
			a.TeamID = teamID
			if m.StatusChangedAt.Before(current) {
				a.LastWeek++
			} else {
				a.ThisWeek++
			}
			activity[teamID] = a
		}
	}
	return activity, nil
}
