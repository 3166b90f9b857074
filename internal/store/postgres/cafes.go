package postgres

import (
	"context"

	"cafepanel/internal/models"
	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5"
)

const cafeColumns = "id, name, address, phone, status"

// The tenant of a cafe is the cafe itself, so the tenant restriction
// applies to the id column.
var cafeList = listSpec{
	from:         "cafes",
	tenantColumn: "id",
	searchColumn: "name",
	filters: map[string]filterColumn{
		"status": {column: "status"},
	},
}

func scanCafe(row pgx.Row) (models.Cafe, error) {
	var c models.Cafe
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Status)
	return c, err
}

func (s *Store) ListCafes(ctx context.Context, q store.ListQuery) ([]models.Cafe, int, error) {
	items := []models.Cafe{}
	total, err := s.list(ctx, cafeList, cafeColumns, q, func(rows pgx.Rows) error {
		c, err := scanCafe(rows)
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

func (s *Store) GetCafe(ctx context.Context, id int64) (models.Cafe, error) {
	c, err := scanCafe(s.pool.QueryRow(ctx, `SELECT `+cafeColumns+` FROM cafes WHERE id = $1`, id))
	return c, notFound(err)
}

func (s *Store) CreateCafe(ctx context.Context, c models.Cafe) (models.Cafe, error) {
	if c.Status == "" {
		c.Status = models.CafeActive
	}
	return scanCafe(s.pool.QueryRow(ctx, `
		INSERT INTO cafes (name, address, phone, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+cafeColumns,
		c.Name, c.Address, c.Phone, c.Status))
}

func (s *Store) UpdateCafe(ctx context.Context, c models.Cafe) (models.Cafe, error) {
	updated, err := scanCafe(s.pool.QueryRow(ctx, `
		UPDATE cafes
		SET name = $2, address = $3, phone = $4, status = $5
		WHERE id = $1
		RETURNING `+cafeColumns,
		c.ID, c.Name, c.Address, c.Phone, c.Status))
	return updated, notFound(err)
}

func (s *Store) DeleteCafe(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cafes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
