package httpapi

import (
	"context"
	"time"

	"cafepanel/internal/models"
	"cafepanel/internal/store"
)

type fakeStore struct {
	listCategoriesFn func(ctx context.Context, q store.ListQuery) ([]models.Category, int, error)
	getCategoryFn    func(ctx context.Context, tenantID, id int64) (models.Category, error)
	createCategoryFn func(ctx context.Context, c models.Category) (models.Category, error)
	updateCategoryFn func(ctx context.Context, c models.Category) (models.Category, error)
	deleteCategoryFn func(ctx context.Context, tenantID, id int64) error

	getTableFn    func(ctx context.Context, tenantID, id int64) (models.Table, error)
	updateTableFn func(ctx context.Context, t models.Table) (models.Table, error)

	createOrderFn func(ctx context.Context, o models.Order) (models.Order, error)

	listCafesFn func(ctx context.Context, q store.ListQuery) ([]models.Cafe, int, error)
	getCafeFn   func(ctx context.Context, id int64) (models.Cafe, error)

	authenticateFn func(ctx context.Context, email, password string) (models.User, error)
	getUserFn      func(ctx context.Context, id int64) (models.User, error)
	dashboardFn    func(ctx context.Context, tenantID int64, since time.Time) (models.Dashboard, error)
	pingFn         func(ctx context.Context) error
}

func (f fakeStore) ListCategories(ctx context.Context, q store.ListQuery) ([]models.Category, int, error) {
	if f.listCategoriesFn == nil {
		return nil, 0, nil
	}
	return f.listCategoriesFn(ctx, q)
}

func (f fakeStore) GetCategory(ctx context.Context, tenantID, id int64) (models.Category, error) {
	if f.getCategoryFn == nil {
		return models.Category{}, store.ErrNotFound
	}
	return f.getCategoryFn(ctx, tenantID, id)
}

func (f fakeStore) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if f.createCategoryFn == nil {
		return c, nil
	}
	return f.createCategoryFn(ctx, c)
}

func (f fakeStore) UpdateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if f.updateCategoryFn == nil {
		return c, nil
	}
	return f.updateCategoryFn(ctx, c)
}

func (f fakeStore) DeleteCategory(ctx context.Context, tenantID, id int64) error {
	if f.deleteCategoryFn == nil {
		return nil
	}
	return f.deleteCategoryFn(ctx, tenantID, id)
}

func (f fakeStore) ListProducts(ctx context.Context, q store.ListQuery) ([]models.Product, int, error) {
	return nil, 0, nil
}

func (f fakeStore) GetProduct(ctx context.Context, tenantID, id int64) (models.Product, error) {
	return models.Product{}, store.ErrNotFound
}

func (f fakeStore) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	return p, nil
}

func (f fakeStore) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	return p, nil
}

func (f fakeStore) DeleteProduct(ctx context.Context, tenantID, id int64) error {
	return nil
}

func (f fakeStore) ListTables(ctx context.Context, q store.ListQuery) ([]models.Table, int, error) {
	return nil, 0, nil
}

func (f fakeStore) GetTable(ctx context.Context, tenantID, id int64) (models.Table, error) {
	if f.getTableFn == nil {
		return models.Table{}, store.ErrNotFound
	}
	return f.getTableFn(ctx, tenantID, id)
}

func (f fakeStore) CreateTable(ctx context.Context, t models.Table) (models.Table, error) {
	return t, nil
}

func (f fakeStore) UpdateTable(ctx context.Context, t models.Table) (models.Table, error) {
	if f.updateTableFn == nil {
		return t, nil
	}
	return f.updateTableFn(ctx, t)
}

func (f fakeStore) DeleteTable(ctx context.Context, tenantID, id int64) error {
	return nil
}

func (f fakeStore) ListOrders(ctx context.Context, q store.ListQuery) ([]models.Order, int, error) {
	return nil, 0, nil
}

func (f fakeStore) GetOrder(ctx context.Context, tenantID, id int64) (models.Order, error) {
	return models.Order{}, store.ErrNotFound
}

func (f fakeStore) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if f.createOrderFn == nil {
		return o, nil
	}
	return f.createOrderFn(ctx, o)
}

func (f fakeStore) UpdateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	return o, nil
}

func (f fakeStore) DeleteOrder(ctx context.Context, tenantID, id int64) error {
	return nil
}

func (f fakeStore) ListCafes(ctx context.Context, q store.ListQuery) ([]models.Cafe, int, error) {
	if f.listCafesFn == nil {
		return nil, 0, nil
	}
	return f.listCafesFn(ctx, q)
}

func (f fakeStore) GetCafe(ctx context.Context, id int64) (models.Cafe, error) {
	if f.getCafeFn == nil {
		return models.Cafe{}, store.ErrNotFound
	}
	return f.getCafeFn(ctx, id)
}

func (f fakeStore) CreateCafe(ctx context.Context, c models.Cafe) (models.Cafe, error) {
	return c, nil
}

func (f fakeStore) UpdateCafe(ctx context.Context, c models.Cafe) (models.Cafe, error) {
	return c, nil
}

func (f fakeStore) DeleteCafe(ctx context.Context, id int64) error {
	return nil
}

func (f fakeStore) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if f.authenticateFn == nil {
		return models.User{}, store.ErrInvalidCredentials
	}
	return f.authenticateFn(ctx, email, password)
}

func (f fakeStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	if f.getUserFn == nil {
		return models.User{ID: id}, nil
	}
	return f.getUserFn(ctx, id)
}

func (f fakeStore) CreateUser(ctx context.Context, u models.User, password string) (models.User, error) {
	return u, nil
}

func (f fakeStore) Dashboard(ctx context.Context, tenantID int64, since time.Time) (models.Dashboard, error) {
	if f.dashboardFn == nil {
		return models.Dashboard{}, nil
	}
	return f.dashboardFn(ctx, tenantID, since)
}

func (f fakeStore) Ping(ctx context.Context) error {
	if f.pingFn == nil {
		return nil
	}
	return f.pingFn(ctx)
}
