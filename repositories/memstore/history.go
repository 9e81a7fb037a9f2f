package memstore

import (
	"context"
	"sort"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type historyRepo struct{ s *Store }

func (r historyRepo) Append(_ context.Context, _ repositories.SQLExecutor, entry *models.PositionHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("history.Append"); err != nil {
		return err
	}
	entry.ID = r.s.nextID()
	if entry.EffectiveAt.IsZero() {
		entry.EffectiveAt = r.s.Now()
	}
	r.s.st.history = append(r.s.st.history, *entry)
	return nil
}

func (r historyRepo) ListByPyramid(_ context.Context, _ repositories.SQLExecutor, pyramidID int, limit int) ([]*models.PositionHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := make([]*models.PositionHistory, 0)
	for i := len(r.s.st.history) - 1; i >= 0; i-- {
		h := r.s.st.history[i]
		if h.PyramidID != nil && *h.PyramidID == pyramidID {
			entries = append(entries, &h)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].EffectiveAt.After(entries[j].EffectiveAt) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r historyRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.PositionHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := make([]*models.PositionHistory, 0)
	for _, h := range r.s.st.history {
		if h.MatchID != nil && *h.MatchID == matchID {
			h := h
			entries = append(entries, &h)
		}
	}
	return entries, nil
}
