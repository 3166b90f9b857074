package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cafepanel/internal/models"
	"cafepanel/internal/resource"
	"cafepanel/internal/store"
)

const maxBodyBytes = 1 << 20

type collection interface {
	name() string
	serveCollection(w http.ResponseWriter, r *http.Request)
	serveRecord(w http.ResponseWriter, r *http.Request)
}

type validator interface {
	Validate() error
}

// resourceRoutes serves list/get/create/patch/delete for one record type.
// Tenant-scoped resources resolve the tenant from X-Tenant-ID; platform
// resources (cafes) use 0 for admins and the caller's own tenant otherwise.
type resourceRoutes[T validator] struct {
	path     string
	platform bool
	read     permission
	write    permission
	filters  []string

	list   func(ctx context.Context, q store.ListQuery) ([]T, int, error)
	get    func(ctx context.Context, tenantID, id int64) (T, error)
	create func(ctx context.Context, record T) (T, error)
	update func(ctx context.Context, record T) (T, error)
	remove func(ctx context.Context, tenantID, id int64) error

	// bind stamps the tenant and id onto a decoded record and rejects
	// references that are not server identifiers.
	bind func(record T, tenantID, id int64) (T, error)
	// patchable, when set, lets roles without the write permission patch
	// the named fields only.
	patchable func(role string, fields []string) bool
}

func (rr *resourceRoutes[T]) name() string {
	return rr.path
}

func (rr *resourceRoutes[T]) scope(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if !rr.platform {
		return requireTenant(w, r)
	}
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return 0, false
	}
	if claims.Role == models.RoleAdmin {
		return 0, true
	}
	if claims.TenantID <= 0 {
		writeError(w, http.StatusForbidden, "access_denied", "tenant access denied")
		return 0, false
	}
	return claims.TenantID, true
}

func (rr *resourceRoutes[T]) serveCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !requirePermission(w, r, rr.read) {
			return
		}
		tenantID, ok := rr.scope(w, r)
		if !ok {
			return
		}
		q, err := parseListQuery(r, tenantID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if err := q.CheckFilters(rr.filters...); err != nil {
			writeStoreError(w, r, err)
			return
		}
		items, total, err := rr.list(r.Context(), q)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, resource.Page[T]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize})
	case http.MethodPost:
		if !requirePermission(w, r, rr.write) {
			return
		}
		tenantID, ok := rr.scope(w, r)
		if !ok {
			return
		}
		var record T
		if !decodeRequest(w, r, &record) {
			return
		}
		record, err := rr.bind(record, tenantID, 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if err := record.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		created, err := rr.create(r.Context(), record)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (rr *resourceRoutes[T]) serveRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/"+rr.path+"/"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "record not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !requirePermission(w, r, rr.read) {
			return
		}
		tenantID, ok := rr.scope(w, r)
		if !ok {
			return
		}
		record, err := rr.get(r.Context(), tenantID, id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	case http.MethodPatch:
		rr.patch(w, r, id)
	case http.MethodDelete:
		if !requirePermission(w, r, rr.write) {
			return
		}
		tenantID, ok := rr.scope(w, r)
		if !ok {
			return
		}
		if err := rr.remove(r.Context(), tenantID, id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ackResponse{OK: true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// patch decodes the body over the stored record, so absent fields keep
// their current values. Unknown fields are rejected.
func (rr *resourceRoutes[T]) patch(w http.ResponseWriter, r *http.Request, id int64) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	allowed := hasPermission(claims.Role, rr.write)
	if !allowed && rr.patchable != nil {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		allowed = rr.patchable(claims.Role, names)
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "access_denied", "insufficient role")
		return
	}

	tenantID, ok := rr.scope(w, r)
	if !ok {
		return
	}
	record, err := rr.get(r.Context(), tenantID, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	record, err = rr.bind(record, tenantID, id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := record.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	updated, err := rr.update(r.Context(), record)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// parseListQuery reads q, page and pageSize; every other non-empty query
// parameter is a filter.
func parseListQuery(r *http.Request, tenantID int64) (store.ListQuery, error) {
	values := r.URL.Query()
	q := store.ListQuery{TenantID: tenantID, Q: strings.TrimSpace(values.Get("q")), Filters: map[string]string{}}
	for key, vals := range values {
		switch key {
		case "q":
		case "page", "pageSize":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 1 {
				return store.ListQuery{}, errors.New(key + " must be a positive integer")
			}
			if key == "page" {
				q.Page = n
			} else {
				q.PageSize = n
			}
		default:
			if len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
				q.Filters[key] = strings.TrimSpace(vals[0])
			}
		}
	}
	return q.Normalize(), nil
}

func idRef(id resource.ID, field string, required bool) error {
	if id.IsZero() {
		if required {
			return errors.New(field + " is required")
		}
		return nil
	}
	if n, ok := id.Int64(); !ok || n <= 0 {
		return errors.New(field + " must be a positive integer")
	}
	return nil
}

func (h *Handler) resources() []collection {
	st := h.store
	return []collection{
		&resourceRoutes[models.Category]{
			path:    "categories",
			read:    permissionMenuRead,
			write:   permissionMenuWrite,
			filters: []string{"type", "active"},
			list:    st.ListCategories,
			get:     st.GetCategory,
			create:  st.CreateCategory,
			update:  st.UpdateCategory,
			remove:  st.DeleteCategory,
			bind: func(c models.Category, tenantID, id int64) (models.Category, error) {
				c.TenantID = tenantID
				c.ID = idOrEmpty(id)
				if c.Active == nil {
					c.Active = models.Bool(true)
				}
				return c, nil
			},
		},
		&resourceRoutes[models.Product]{
			path:    "products",
			read:    permissionMenuRead,
			write:   permissionMenuWrite,
			filters: []string{"categoryId", "status"},
			list:    st.ListProducts,
			get:     st.GetProduct,
			create:  st.CreateProduct,
			update:  st.UpdateProduct,
			remove:  st.DeleteProduct,
			bind: func(p models.Product, tenantID, id int64) (models.Product, error) {
				p.TenantID = tenantID
				p.ID = idOrEmpty(id)
				return p, idRef(p.CategoryID, "categoryId", true)
			},
		},
		&resourceRoutes[models.Table]{
			path:    "tables",
			read:    permissionTablesRead,
			write:   permissionTablesWrite,
			filters: []string{"status", "branchId"},
			list:    st.ListTables,
			get:     st.GetTable,
			create:  st.CreateTable,
			update:  st.UpdateTable,
			remove:  st.DeleteTable,
			bind: func(t models.Table, tenantID, id int64) (models.Table, error) {
				t.TenantID = tenantID
				t.ID = idOrEmpty(id)
				return t, nil
			},
			patchable: func(role string, fields []string) bool {
				if !hasPermission(role, permissionTableStatus) {
					return false
				}
				for _, f := range fields {
					if f != "status" && f != "id" {
						return false
					}
				}
				return true
			},
		},
		&resourceRoutes[models.Order]{
			path:    "orders",
			read:    permissionOrdersRead,
			write:   permissionOrdersWrite,
			filters: []string{"status", "tableId"},
			list:    st.ListOrders,
			get:     st.GetOrder,
			create:  st.CreateOrder,
			update:  st.UpdateOrder,
			remove:  st.DeleteOrder,
			bind: func(o models.Order, tenantID, id int64) (models.Order, error) {
				o.TenantID = tenantID
				o.ID = idOrEmpty(id)
				o.CreatedAt = nil
				if err := idRef(o.TableID, "tableId", false); err != nil {
					return o, err
				}
				for _, item := range o.Items {
					if err := idRef(item.ProductID, "productId", true); err != nil {
						return o, err
					}
				}
				return o, nil
			},
		},
		&resourceRoutes[models.Cafe]{
			path:     "cafes",
			platform: true,
			read:     permissionCafesRead,
			write:    permissionCafesWrite,
			filters:  []string{"status"},
			list:     st.ListCafes,
			get: func(ctx context.Context, tenantID, id int64) (models.Cafe, error) {
				if tenantID != 0 && tenantID != id {
					return models.Cafe{}, store.ErrNotFound
				}
				return st.GetCafe(ctx, id)
			},
			create: st.CreateCafe,
			update: st.UpdateCafe,
			remove: func(ctx context.Context, tenantID, id int64) error {
				return st.DeleteCafe(ctx, id)
			},
			bind: func(c models.Cafe, tenantID, id int64) (models.Cafe, error) {
				c.ID = idOrEmpty(id)
				return c, nil
			},
		},
	}
}

func idOrEmpty(id int64) resource.ID {
	if id == 0 {
		return ""
	}
	return resource.IDFromInt(id)
}
