package postgres

import (
	"context"
	"time"

	"cafepanel/internal/models"
)

func (s *Store) Dashboard(ctx context.Context, tenantID int64, since time.Time) (models.Dashboard, error) {
	d := models.Dashboard{Since: since, OrdersByStatus: map[string]int{}}

	if err := s.pool.QueryRow(ctx, `
		SELECT
			count(*),
			COALESCE(sum(total) FILTER (WHERE status = $3), 0)::float8,
			count(*) FILTER (WHERE status NOT IN ($3, $4))
		FROM orders
		WHERE tenant_id = $1 AND created_at >= $2
	`, tenantID, since, models.OrderPaid, models.OrderCancelled).Scan(&d.OrdersCount, &d.Revenue, &d.OpenOrders); err != nil {
		return models.Dashboard{}, err
	}

	if err := s.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = $2)
		FROM dining_tables
		WHERE tenant_id = $1
	`, tenantID, models.TableOccupied).Scan(&d.TableCount, &d.OccupiedTables); err != nil {
		return models.Dashboard{}, err
	}

	if err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM products WHERE tenant_id = $1
	`, tenantID).Scan(&d.ProductCount); err != nil {
		return models.Dashboard{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT status, count(*)
		FROM orders
		WHERE tenant_id = $1 AND created_at >= $2
		GROUP BY status
	`, tenantID, since)
	if err != nil {
		return models.Dashboard{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return models.Dashboard{}, err
		}
		d.OrdersByStatus[status] = count
	}
	return d, rows.Err()
}
