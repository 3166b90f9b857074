package postgres

import (
	"context"

	"cafepanel/internal/models"
	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5"
)

const categoryColumns = "id, tenant_id, name, type, description, active"

var categoryList = listSpec{
	from:         "categories",
	tenantColumn: "tenant_id",
	searchColumn: "name",
	filters: map[string]filterColumn{
		"type":   {column: "type"},
		"active": {column: "active", kind: filterBool},
	},
}

func scanCategory(row pgx.Row) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Type, &c.Description, &c.Active)
	return c, err
}

func (s *Store) ListCategories(ctx context.Context, q store.ListQuery) ([]models.Category, int, error) {
	items := []models.Category{}
	total, err := s.list(ctx, categoryList, categoryColumns, q, func(rows pgx.Rows) error {
		c, err := scanCategory(rows)
		if err != nil {
			return err
		}
		items = append(items, c)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) GetCategory(ctx context.Context, tenantID, id int64) (models.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	return c, notFound(err)
}

func (s *Store) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	created, err := scanCategory(s.pool.QueryRow(ctx, `
		INSERT INTO categories (tenant_id, name, type, description, active)
		VALUES ($1, $2, $3, $4, COALESCE($5::boolean, TRUE))
		RETURNING `+categoryColumns,
		c.TenantID, c.Name, c.Type, c.Description, c.Active))
	return created, foreignKeyViolation(err)
}

func (s *Store) UpdateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	updated, err := scanCategory(s.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $3, type = $4, description = $5, active = COALESCE($6::boolean, active)
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+categoryColumns,
		c.TenantID, c.ID, c.Name, c.Type, c.Description, c.Active))
	return updated, notFound(err)
}

// DeleteCategory refuses while any product still points at the category.
func (s *Store) DeleteCategory(ctx context.Context, tenantID, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var inUse bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE tenant_id = $1 AND category_id = $2)
	`, tenantID, id).Scan(&inUse); err != nil {
		return err
	}
	if inUse {
		return store.ErrCategoryInUse
	}

	tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return stillReferenced(err, store.ErrCategoryInUse)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return stillReferenced(tx.Commit(ctx), store.ErrCategoryInUse)
}
