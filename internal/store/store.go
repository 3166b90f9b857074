package store

import (
	"context"
	"fmt"
	"time"

	"cafepanel/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery is a tenant-scoped list request. Filters hold raw query string
// values keyed by the resource's whitelisted filter names.
type ListQuery struct {
	TenantID int64
	Q        string
	Page     int
	PageSize int
	Filters  map[string]string
}

// Normalize clamps paging to the served range.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// CheckFilters rejects filter keys outside allowed.
func (q ListQuery) CheckFilters(allowed ...string) error {
	for key := range q.Filters {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrInvalidFilter, key)
		}
	}
	return nil
}

type CategoryStore interface {
	ListCategories(ctx context.Context, q ListQuery) ([]models.Category, int, error)
	GetCategory(ctx context.Context, tenantID, id int64) (models.Category, error)
	CreateCategory(ctx context.Context, c models.Category) (models.Category, error)
	UpdateCategory(ctx context.Context, c models.Category) (models.Category, error)
	DeleteCategory(ctx context.Context, tenantID, id int64) error
}

type ProductStore interface {
	ListProducts(ctx context.Context, q ListQuery) ([]models.Product, int, error)
	GetProduct(ctx context.Context, tenantID, id int64) (models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, tenantID, id int64) error
}

type TableStore interface {
	ListTables(ctx context.Context, q ListQuery) ([]models.Table, int, error)
	GetTable(ctx context.Context, tenantID, id int64) (models.Table, error)
	CreateTable(ctx context.Context, t models.Table) (models.Table, error)
	UpdateTable(ctx context.Context, t models.Table) (models.Table, error)
	DeleteTable(ctx context.Context, tenantID, id int64) error
}

type OrderStore interface {
	ListOrders(ctx context.Context, q ListQuery) ([]models.Order, int, error)
	GetOrder(ctx context.Context, tenantID, id int64) (models.Order, error)
	CreateOrder(ctx context.Context, o models.Order) (models.Order, error)
	UpdateOrder(ctx context.Context, o models.Order) (models.Order, error)
	DeleteOrder(ctx context.Context, tenantID, id int64) error
}

// CafeStore is platform-scoped; ListQuery.TenantID, when set, restricts
// the listing to that cafe.
type CafeStore interface {
	ListCafes(ctx context.Context, q ListQuery) ([]models.Cafe, int, error)
	GetCafe(ctx context.Context, id int64) (models.Cafe, error)
	CreateCafe(ctx context.Context, c models.Cafe) (models.Cafe, error)
	UpdateCafe(ctx context.Context, c models.Cafe) (models.Cafe, error)
	DeleteCafe(ctx context.Context, id int64) error
}

type UserStore interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	CreateUser(ctx context.Context, u models.User, password string) (models.User, error)
}

type DashboardStore interface {
	Dashboard(ctx context.Context, tenantID int64, since time.Time) (models.Dashboard, error)
}

type Store interface {
	CategoryStore
	ProductStore
	TableStore
	OrderStore
	CafeStore
	UserStore
	DashboardStore
	Ping(ctx context.Context) error
}
