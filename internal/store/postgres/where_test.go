package postgres

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestListSpecWhere(t *testing.T) {
	where, args, err := productList.where(store.ListQuery{
		TenantID: 4,
		Q:        "50%_off",
		Filters:  map[string]string{"status": "Active", "categoryId": "7"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := " WHERE tenant_id = $1 AND name ILIKE $2 AND category_id = $3 AND status = $4"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	wantArgs := []interface{}{int64(4), `%50\%\_off%`, int64(7), "Active"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %#v, want %#v", args, wantArgs)
	}
}

func TestListSpecWhereEmpty(t *testing.T) {
	where, args, err := cafeList.where(store.ListQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if where != "" || len(args) != 0 {
		t.Fatalf("expected empty clause, got %q %v", where, args)
	}
}

func TestListSpecWhereRejectsFilters(t *testing.T) {
	cases := []map[string]string{
		{"color": "red"},
		{"categoryId": "abc"},
	}
	for _, filters := range cases {
		_, _, err := productList.where(store.ListQuery{Filters: filters})
		if !errors.Is(err, store.ErrInvalidFilter) {
			t.Fatalf("filters %v: expected ErrInvalidFilter, got %v", filters, err)
		}
	}
	_, _, err := categoryList.where(store.ListQuery{Filters: map[string]string{"active": "maybe"}})
	if !errors.Is(err, store.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for bool filter, got %v", err)
	}
}

func TestStillReferenced(t *testing.T) {
	violation := fmt.Errorf("delete category: %w", &pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"})
	if err := stillReferenced(violation, store.ErrCategoryInUse); !errors.Is(err, store.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}

	other := &pgconn.PgError{Code: "23505"}
	if err := stillReferenced(other, store.ErrCategoryInUse); err != other {
		t.Fatalf("expected unrelated error to pass through, got %v", err)
	}
	if err := stillReferenced(nil, store.ErrCategoryInUse); err != nil {
		t.Fatalf("expected nil to stay nil, got %v", err)
	}
}

func TestForeignKeyViolation(t *testing.T) {
	if err := foreignKeyViolation(&pgconn.PgError{Code: "23503"}); !errors.Is(err, store.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
}
