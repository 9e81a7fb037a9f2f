package memstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type positionRepo struct{ s *Store }

// commit applies next to the position table unless it breaks a uniqueness rule. Must
// be called with s.mu held.
func (r positionRepo) commit(next map[int]models.Position) error {
	previous := r.s.st.positions
	r.s.st.positions = next
	if err := r.s.checkGrid(); err != nil {
		r.s.st.positions = previous
		if errors.Is(err, repositories.ErrSlotOccupied) {
			return repositories.ErrSlotOccupied
		}
		return repositories.ErrTeamAlreadyPositioned
	}
	return nil
}

func (r positionRepo) copyTable() map[int]models.Position {
	next := make(map[int]models.Position, len(r.s.st.positions)+1)
	for k, v := range r.s.st.positions {
		next[k] = v
	}
	return next
}

func (r positionRepo) Create(_ context.Context, _ repositories.SQLExecutor, position *models.Position) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("positions.Create"); err != nil {
		return err
	}
	if position.Row < 1 || position.Col < 1 || position.Col > position.Row {
		return repositories.ErrSlotOutOfGrid
	}
	if _, ok := r.s.st.pyramids[position.PyramidID]; !ok {
		return repositories.ErrPositionPyramidInvalid
	}
	if _, ok := r.s.st.teams[position.TeamID]; !ok {
		return repositories.ErrPositionTeamInvalid
	}
	if position.Status == "" {
		position.Status = models.TeamStatusIdle
	}
	if position.LastResult == "" {
		position.LastResult = models.LastResultNone
	}
	next := r.copyTable()
	id := r.s.st.seq + 1
	stored := *position
	stored.ID = id
	stored.Team = nil
	stored.CreatedAt = r.s.Now()
	stored.UpdatedAt = stored.CreatedAt
	next[id] = stored
	if err := r.commit(next); err != nil {
		return err
	}
	r.s.nextID()
	position.ID = id
	position.CreatedAt = stored.CreatedAt
	position.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r positionRepo) find(match func(models.Position) bool) (*models.Position, error) {
	for _, p := range r.s.st.positions {
		if match(p) {
			p := p
			return &p, nil
		}
	}
	return nil, repositories.ErrPositionNotFound
}

func (r positionRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.positions[id]
	if !ok {
		return nil, repositories.ErrPositionNotFound
	}
	return &p, nil
}

func (r positionRepo) GetByTeam(_ context.Context, _ repositories.SQLExecutor, pyramidID, teamID int) (*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(p models.Position) bool { return p.PyramidID == pyramidID && p.TeamID == teamID })
}

func (r positionRepo) GetBySlot(_ context.Context, _ repositories.SQLExecutor, pyramidID int, slot models.Slot) (*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(p models.Position) bool { return p.PyramidID == pyramidID && p.Slot() == slot })
}

func (r positionRepo) list(match func(models.Position) bool) []*models.Position {
	positions := make([]*models.Position, 0)
	for _, p := range r.s.st.positions {
		if match(p) {
			p := p
			positions = append(positions, &p)
		}
	}
	sortPositions(positions)
	return positions
}

func (r positionRepo) ListByPyramid(_ context.Context, _ repositories.SQLExecutor, pyramidID int) ([]*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("positions.ListByPyramid"); err != nil {
		return nil, err
	}
	return r.list(func(p models.Position) bool { return p.PyramidID == pyramidID }), nil
}

func (r positionRepo) ListByTeam(_ context.Context, _ repositories.SQLExecutor, teamID int) ([]*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(p models.Position) bool { return p.TeamID == teamID }), nil
}

func (r positionRepo) LockByTeams(_ context.Context, _ repositories.SQLExecutor, pyramidID int, teamIDs ...int) ([]*models.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = true
	}
	return r.list(func(p models.Position) bool { return p.PyramidID == pyramidID && wanted[p.TeamID] }), nil
}

func (r positionRepo) update(op string, id int, mutate func(*models.Position)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(op); err != nil {
		return err
	}
	p, ok := r.s.st.positions[id]
	if !ok {
		return repositories.ErrPositionNotFound
	}
	mutate(&p)
	p.UpdatedAt = r.s.Now()
	next := r.copyTable()
	next[id] = p
	return r.commit(next)
}

func (r positionRepo) ReplaceTeam(_ context.Context, _ repositories.SQLExecutor, positionID, teamID int) error {
	return r.update("positions.ReplaceTeam", positionID, func(p *models.Position) {
		p.TeamID = teamID
		p.Wins, p.Losses, p.LosingStreak = 0, 0, 0
		p.Status = models.TeamStatusIdle
		p.LastResult = models.LastResultNone
		p.Defendable = true
	})
}

func (r positionRepo) Move(_ context.Context, _ repositories.SQLExecutor, positionID int, slot models.Slot) error {
	if slot.Row < 1 || slot.Col < 1 || slot.Col > slot.Row {
		return repositories.ErrSlotOutOfGrid
	}
	return r.update("positions.Move", positionID, func(p *models.Position) {
		p.Row, p.Col = slot.Row, slot.Col
	})
}

func (r positionRepo) Exchange(_ context.Context, _ repositories.SQLExecutor, positionA, positionB int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("positions.Exchange"); err != nil {
		return err
	}
	if positionA == positionB {
		return fmt.Errorf("cannot exchange position %d with itself", positionA)
	}
	a, okA := r.s.st.positions[positionA]
	b, okB := r.s.st.positions[positionB]
	if !okA || !okB || a.PyramidID != b.PyramidID {
		return repositories.ErrPositionNotFound
	}
	a.Row, a.Col, b.Row, b.Col = b.Row, b.Col, a.Row, a.Col
	a.UpdatedAt, b.UpdatedAt = r.s.Now(), r.s.Now()
	next := r.copyTable()
	next[a.ID], next[b.ID] = a, b
	return r.commit(next)
}

func (r positionRepo) RecordResult(_ context.Context, _ repositories.SQLExecutor, positionID int, outcome models.Outcome) error {
	return r.update("positions.RecordResult", positionID, func(p *models.Position) {
		applyOutcome(&p.Wins, &p.Losses, &p.LosingStreak, &p.Status, outcome)
		p.LastResult = outcome.LastResult
	})
}

func (r positionRepo) MarkRisky(_ context.Context, _ repositories.SQLExecutor, positionIDs []int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("positions.MarkRisky"); err != nil {
		return 0, err
	}
	marked := 0
	for _, id := range positionIDs {
		p, ok := r.s.st.positions[id]
		if !ok {
			continue
		}
		p.Status = models.TeamStatusRisky
		p.UpdatedAt = r.s.Now()
		r.s.st.positions[id] = p
		marked++
	}
	return marked, nil
}

func (r positionRepo) MaxOccupiedRow(_ context.Context, _ repositories.SQLExecutor, pyramidID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	maxRow := 0
	for _, p := range r.s.st.positions {
		if p.PyramidID == pyramidID && p.Row > maxRow {
			maxRow = p.Row
		}
	}
	return maxRow, nil
}

func (r positionRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("positions.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.st.positions[id]; !ok {
		return repositories.ErrPositionNotFound
	}
	delete(r.s.st.positions, id)
	return nil
}

func applyOutcome(wins, losses, streak *int, status *models.TeamStatus, outcome models.Outcome) {
	if outcome.Won {
		*wins++
		*streak = 0
		*status = models.TeamStatusWinner
		return
	}
	*losses++
	*streak++
	*status = models.TeamStatusLooser
}
