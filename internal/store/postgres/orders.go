package postgres

import (
	"context"

	"cafepanel/internal/models"
	"cafepanel/internal/resource"
	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5"
)

const orderColumns = "id, tenant_id, table_id, status, items, total::float8, note, created_at"

var orderList = listSpec{
	from:         "orders",
	tenantColumn: "tenant_id",
	searchColumn: "note",
	filters: map[string]filterColumn{
		"status":  {column: "status"},
		"tableId": {column: "table_id", kind: filterInt},
	},
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.TenantID, &o.TableID, &o.Status, &o.Items, &o.Total, &o.Note, &o.CreatedAt)
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}
	return o, err
}

func (s *Store) ListOrders(ctx context.Context, q store.ListQuery) ([]models.Order, int, error) {
	items := []models.Order{}
	total, err := s.list(ctx, orderList, orderColumns, q, func(rows pgx.Rows) error {
		o, err := scanOrder(rows)
		if err != nil {
			return err
		}
		items = append(items, o)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) GetOrder(ctx context.Context, tenantID, id int64) (models.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	return o, notFound(err)
}

// CreateOrder stores the order with its total recomputed from the items
// and marks the referenced table occupied.
func (s *Store) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.Status == "" {
		o.Status = models.OrderOpen
	}
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}
	o.Total = o.ComputeTotal()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := checkTable(ctx, tx, o); err != nil {
		return models.Order{}, err
	}

	created, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders (tenant_id, table_id, status, items, total, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns,
		o.TenantID, o.TableID, o.Status, o.Items, o.Total, o.Note))
	if err != nil {
		return models.Order{}, foreignKeyViolation(err)
	}

	if !created.TableID.IsZero() && isActiveOrder(created.Status) {
		if err := setTableStatus(ctx, tx, created.TenantID, created.TableID, models.TableOccupied); err != nil {
			return models.Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return created, nil
}

// UpdateOrder recomputes the total. An active order occupies its table,
// as on create. A table the order no longer holds, because it moved or
// was paid or cancelled, is released once no other active order uses it.
func (s *Store) UpdateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}
	o.Total = o.ComputeTotal()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := checkTable(ctx, tx, o); err != nil {
		return models.Order{}, err
	}

	var previous models.Order
	if err := tx.QueryRow(ctx, `
		SELECT table_id FROM orders WHERE tenant_id = $1 AND id = $2 FOR UPDATE
	`, o.TenantID, o.ID).Scan(&previous.TableID); err != nil {
		return models.Order{}, notFound(err)
	}

	updated, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders
		SET table_id = $3, status = $4, items = $5, total = $6, note = $7
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+orderColumns,
		o.TenantID, o.ID, o.TableID, o.Status, o.Items, o.Total, o.Note))
	if err != nil {
		return models.Order{}, foreignKeyViolation(notFound(err))
	}

	active := isActiveOrder(updated.Status)
	if !updated.TableID.IsZero() && active {
		if err := setTableStatus(ctx, tx, updated.TenantID, updated.TableID, models.TableOccupied); err != nil {
			return models.Order{}, err
		}
	}
	if !previous.TableID.IsZero() && (previous.TableID != updated.TableID || !active) {
		if err := releaseTable(ctx, tx, updated.TenantID, previous.TableID); err != nil {
			return models.Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return updated, nil
}

func setTableStatus(ctx context.Context, tx pgx.Tx, tenantID int64, tableID resource.ID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE dining_tables SET status = $3 WHERE tenant_id = $1 AND id = $2
	`, tenantID, tableID, status)
	return err
}

// releaseTable marks the table available unless an active order still
// points at it.
func releaseTable(ctx context.Context, tx pgx.Tx, tenantID int64, tableID resource.ID) error {
	_, err := tx.Exec(ctx, `
		UPDATE dining_tables t
		SET status = $3
		WHERE t.tenant_id = $1 AND t.id = $2
		  AND NOT EXISTS (
		      SELECT 1 FROM orders o
		      WHERE o.tenant_id = t.tenant_id AND o.table_id = t.id AND o.status NOT IN ($4, $5)
		  )
	`, tenantID, tableID, models.TableAvailable, models.OrderPaid, models.OrderCancelled)
	return err
}

func (s *Store) DeleteOrder(ctx context.Context, tenantID, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func checkTable(ctx context.Context, tx pgx.Tx, o models.Order) error {
	if o.TableID.IsZero() {
		return nil
	}
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM dining_tables WHERE tenant_id = $1 AND id = $2)
	`, o.TenantID, o.TableID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrUnknownReference
	}
	return nil
}

func isActiveOrder(status string) bool {
	return status != models.OrderPaid && status != models.OrderCancelled
}

