package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dosada05/pyramid-ladder/models"
)

var (
	ErrPyramidNotFound        = errors.New("pyramid not found")
	ErrPyramidInvalidRows     = errors.New("pyramid row count must be at least 1")
	ErrPyramidCategoryInvalid = errors.New("category does not exist")
)

type PyramidRepository interface {
	Create(ctx context.Context, exec SQLExecutor, pyramid *models.Pyramid) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Pyramid, error)
	List(ctx context.Context, exec SQLExecutor, activeOnly bool) ([]*models.Pyramid, error)
	Update(ctx context.Context, exec SQLExecutor, pyramid *models.Pyramid) error
	SetCategories(ctx context.Context, exec SQLExecutor, pyramidID int, categoryIDs []int) error
	ListCategories(ctx context.Context, exec SQLExecutor, pyramidID int) ([]*models.Category, error)
}

type postgresPyramidRepository struct {
	db *sql.DB
}

func NewPostgresPyramidRepository(db *sql.DB) PyramidRepository {
	return &postgresPyramidRepository{db: db}
}

func (r *postgresPyramidRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const pyramidColumns = `id, name, description, row_count, active, created_at, updated_at`

func scanPyramid(row rowScanner) (*models.Pyramid, error) {
	var p models.Pyramid
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.RowCount, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresPyramidRepository) Create(ctx context.Context, exec SQLExecutor, pyramid *models.Pyramid) error {
	query := `
		INSERT INTO pyramids (name, description, row_count, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		pyramid.Name, pyramid.Description, pyramid.RowCount, pyramid.Active,
	).Scan(&pyramid.ID, &pyramid.CreatedAt, &pyramid.UpdatedAt)
	return r.handlePyramidError(err)
}

func (r *postgresPyramidRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Pyramid, error) {
	query := `SELECT ` + pyramidColumns + ` FROM pyramids WHERE id = $1`

	pyramid, err := scanPyramid(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPyramidNotFound
		}
		return nil, err
	}
	return pyramid, nil
}

func (r *postgresPyramidRepository) List(ctx context.Context, exec SQLExecutor, activeOnly bool) ([]*models.Pyramid, error) {
	query := `SELECT ` + pyramidColumns + ` FROM pyramids WHERE ($1 = FALSE OR active) ORDER BY id`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pyramids := make([]*models.Pyramid, 0)
	for rows.Next() {
		pyramid, scanErr := scanPyramid(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		pyramids = append(pyramids, pyramid)
	}
	return pyramids, rows.Err()
}

func (r *postgresPyramidRepository) Update(ctx context.Context, exec SQLExecutor, pyramid *models.Pyramid) error {
	query := `
		UPDATE pyramids
		SET name = $1, description = $2, row_count = $3, active = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		pyramid.Name, pyramid.Description, pyramid.RowCount, pyramid.Active, pyramid.ID,
	).Scan(&pyramid.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPyramidNotFound
	}
	return r.handlePyramidError(err)
}

// SetCategories replaces the pyramid's category links with categoryIDs.
func (r *postgresPyramidRepository) SetCategories(ctx context.Context, exec SQLExecutor, pyramidID int, categoryIDs []int) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM pyramid_categories WHERE pyramid_id = $1`, pyramidID); err != nil {
		return fmt.Errorf("failed to clear categories of pyramid %d: %w", pyramidID, err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO pyramid_categories (pyramid_id, category_id)
		SELECT $1, unnest($2::int[])
		ON CONFLICT DO NOTHING`
	_, err := executor.ExecContext(ctx, query, pyramidID, pq.Array(int64s(categoryIDs)))
	return r.handlePyramidError(err)
}

func (r *postgresPyramidRepository) ListCategories(ctx context.Context, exec SQLExecutor, pyramidID int) ([]*models.Category, error) {
	query := `
		SELECT c.id, c.name, c.level
		FROM categories c
		JOIN pyramid_categories pc ON pc.category_id = c.id
		WHERE pc.pyramid_id = $1
		ORDER BY c.level, c.id`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pyramidID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var c models.Category
		if scanErr := rows.Scan(&c.ID, &c.Name, &c.Level); scanErr != nil {
			return nil, scanErr
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

func (r *postgresPyramidRepository) handlePyramidError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pgCheckViolation:
			if pqErr.Constraint == "pyramids_row_count_check" {
				return ErrPyramidInvalidRows
			}
		case pgForeignKeyViolation:
			switch pqErr.Constraint {
			case "pyramid_categories_category_id_fkey":
				return ErrPyramidCategoryInvalid
			case "pyramid_categories_pyramid_id_fkey":
				return ErrPyramidNotFound
			}
		}
	}
	return err
}
