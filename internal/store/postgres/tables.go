package postgres

import (
	"context"

	"cafepanel/internal/models"
	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5"
)

const tableColumns = "id, tenant_id, COALESCE(branch_id, 0), name, seats, status"

var tableList = listSpec{
	from:         "dining_tables",
	tenantColumn: "tenant_id",
	searchColumn: "name",
	filters: map[string]filterColumn{
		"status":   {column: "status"},
		"branchId": {column: "branch_id", kind: filterInt},
	},
}

func scanTable(row pgx.Row) (models.Table, error) {
	var t models.Table
	err := row.Scan(&t.ID, &t.TenantID, &t.BranchID, &t.Name, &t.Seats, &t.Status)
	return t, err
}

func (s *Store) ListTables(ctx context.Context, q store.ListQuery) ([]models.Table, int, error) {
	items := []models.Table{}
	total, err := s.list(ctx, tableList, tableColumns, q, func(rows pgx.Rows) error {
		t, err := scanTable(rows)
		if err != nil {
			return err
		}
		items = append(items, t)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) GetTable(ctx context.Context, tenantID, id int64) (models.Table, error) {
	t, err := scanTable(s.pool.QueryRow(ctx, `
		SELECT `+tableColumns+`
		FROM dining_tables
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	return t, notFound(err)
}

func (s *Store) CreateTable(ctx context.Context, t models.Table) (models.Table, error) {
	if t.Status == "" {
		t.Status = models.TableAvailable
	}
	created, err := scanTable(s.pool.QueryRow(ctx, `
		INSERT INTO dining_tables (tenant_id, branch_id, name, seats, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+tableColumns,
		t.TenantID, nullIfZero(t.BranchID), t.Name, t.Seats, t.Status))
	return created, foreignKeyViolation(err)
}

func (s *Store) UpdateTable(ctx context.Context, t models.Table) (models.Table, error) {
	updated, err := scanTable(s.pool.QueryRow(ctx, `
		UPDATE dining_tables
		SET branch_id = $3, name = $4, seats = $5, status = $6
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+tableColumns,
		t.TenantID, t.ID, nullIfZero(t.BranchID), t.Name, t.Seats, t.Status))
	return updated, notFound(err)
}

// DeleteTable refuses while the table is occupied.
func (s *Store) DeleteTable(ctx context.Context, tenantID, id int64) error {
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT status FROM dining_tables WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&status)
	if err != nil {
		return notFound(err)
	}
	if status == models.TableOccupied {
		return store.ErrTableOccupied
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM dining_tables WHERE tenant_id = $1 AND id = $2 AND status <> $3
	`, tenantID, id, models.TableOccupied)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrTableOccupied
	}
	return nil
}
