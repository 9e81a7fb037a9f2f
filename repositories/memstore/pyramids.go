package memstore

import (
	"context"
	"sort"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/repositories"
)

type pyramidRepo struct{ s *Store }

func (r pyramidRepo) Create(_ context.Context, _ repositories.SQLExecutor, pyramid *models.Pyramid) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("pyramids.Create"); err != nil {
		return err
	}
	if pyramid.RowCount < 1 {
		return repositories.ErrPyramidInvalidRows
	}
	pyramid.ID = r.s.nextID()
	pyramid.CreatedAt = r.s.Now()
	pyramid.UpdatedAt = pyramid.CreatedAt
	stored := *pyramid
	stored.CategoryIDs = nil
	r.s.st.pyramids[pyramid.ID] = stored
	return nil
}

func (r pyramidRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Pyramid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("pyramids.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.st.pyramids[id]
	if !ok {
		return nil, repositories.ErrPyramidNotFound
	}
	return &p, nil
}

func (r pyramidRepo) List(_ context.Context, _ repositories.SQLExecutor, activeOnly bool) ([]*models.Pyramid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pyramids := make([]*models.Pyramid, 0, len(r.s.st.pyramids))
	for _, p := range r.s.st.pyramids {
		if activeOnly && !p.Active {
			continue
		}
		p := p
		pyramids = append(pyramids, &p)
	}
	sort.Slice(pyramids, func(i, j int) bool { return pyramids[i].ID < pyramids[j].ID })
	return pyramids, nil
}

func (r pyramidRepo) Update(_ context.Context, _ repositories.SQLExecutor, pyramid *models.Pyramid) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("pyramids.Update"); err != nil {
		return err
	}
	current, ok := r.s.st.pyramids[pyramid.ID]
	if !ok {
		return repositories.ErrPyramidNotFound
	}
	if pyramid.RowCount < 1 {
		return repositories.ErrPyramidInvalidRows
	}
	current.Name = pyramid.Name
	current.Description = pyramid.Description
	current.RowCount = pyramid.RowCount
	current.Active = pyramid.Active
	current.UpdatedAt = r.s.Now()
	pyramid.UpdatedAt = current.UpdatedAt
	r.s.st.pyramids[pyramid.ID] = current
	return nil
}

func (r pyramidRepo) SetCategories(_ context.Context, _ repositories.SQLExecutor, pyramidID int, categoryIDs []int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.pyramids[pyramidID]; !ok {
		return repositories.ErrPyramidNotFound
	}
	seen := make(map[int]bool, len(categoryIDs))
	ids := make([]int, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, ok := r.s.st.categories[id]; !ok {
			return repositories.ErrPyramidCategoryInvalid
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	r.s.st.pyramidCategories[pyramidID] = ids
	return nil
}

func (r pyramidRepo) ListCategories(_ context.Context, _ repositories.SQLExecutor, pyramidID int) ([]*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	categories := make([]*models.Category, 0)
	for _, id := range r.s.st.pyramidCategories[pyramidID] {
		c := r.s.st.categories[id]
		categories = append(categories, &c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Level != categories[j].Level {
			return categories[i].Level < categories[j].Level
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}
