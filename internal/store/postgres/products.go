package postgres

import (
	"context"
	"errors"

	"cafepanel/internal/models"
	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5"
)

const productColumns = "id, tenant_id, category_id, name, price::float8, description, status"

var productList = listSpec{
	from:         "products",
	tenantColumn: "tenant_id",
	searchColumn: "name",
	filters: map[string]filterColumn{
		"categoryId": {column: "category_id", kind: filterInt},
		"status":     {column: "status"},
	},
}

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.TenantID, &p.CategoryID, &p.Name, &p.Price, &p.Description, &p.Status)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, q store.ListQuery) ([]models.Product, int, error) {
	items := []models.Product{}
	total, err := s.list(ctx, productList, productColumns, q, func(rows pgx.Rows) error {
		p, err := scanProduct(rows)
		if err != nil {
			return err
		}
		items = append(items, p)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) GetProduct(ctx context.Context, tenantID, id int64) (models.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	return p, notFound(err)
}

// CreateProduct checks the category belongs to the same tenant.
func (s *Store) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.Status == "" {
		p.Status = models.ProductActive
	}
	created, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (tenant_id, category_id, name, price, description, status)
		SELECT $1, c.id, $3::text, $4::numeric, $5::text, $6::text
		FROM categories c
		WHERE c.tenant_id = $1 AND c.id = $2
		RETURNING `+productColumns,
		p.TenantID, p.CategoryID, p.Name, p.Price, p.Description, p.Status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, store.ErrUnknownReference
		}
		return models.Product{}, err
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	var categoryOK bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE tenant_id = $1 AND id = $2)
	`, p.TenantID, p.CategoryID).Scan(&categoryOK); err != nil {
		return models.Product{}, err
	}
	if !categoryOK {
		return models.Product{}, store.ErrUnknownReference
	}
	updated, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET category_id = $3, name = $4, price = $5, description = $6, status = $7
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+productColumns,
		p.TenantID, p.ID, p.CategoryID, p.Name, p.Price, p.Description, p.Status))
	return updated, notFound(err)
}

func (s *Store) DeleteProduct(ctx context.Context, tenantID, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
