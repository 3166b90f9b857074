package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type filterKind int

const (
	filterText filterKind = iota
	filterInt
	filterBool
)

type filterColumn struct {
	column string
	kind   filterKind
}

// listSpec describes how one resource maps onto a list query.
type listSpec struct {
	from         string
	tenantColumn string
	searchColumn string
	filters      map[string]filterColumn
}

// where builds the WHERE clause and its positional args for q.
func (l listSpec) where(q store.ListQuery) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}
	add := func(format string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if l.tenantColumn != "" && q.TenantID > 0 {
		add(l.tenantColumn+" = $%d", q.TenantID)
	}
	if q.Q != "" && l.searchColumn != "" {
		add(l.searchColumn+" ILIKE $%d", "%"+escapeLike(q.Q)+"%")
	}

	keys := make([]string, 0, len(q.Filters))
	for key := range q.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		col, ok := l.filters[key]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", store.ErrInvalidFilter, key)
		}
		raw := q.Filters[key]
		switch col.kind {
		case filterInt:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %s must be an integer", store.ErrInvalidFilter, key)
			}
			add(col.column+" = $%d", n)
		case filterBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %s must be a boolean", store.ErrInvalidFilter, key)
			}
			add(col.column+" = $%d", b)
		default:
			add(col.column+" = $%d", raw)
		}
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// list runs the count and page queries for spec and hands each row to scan.
func (s *Store) list(ctx context.Context, spec listSpec, columns string, q store.ListQuery, scan func(pgx.Rows) error) (int, error) {
	q = q.Normalize()
	where, args, err := spec.where(q)
	if err != nil {
		return 0, err
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+spec.from+where, args...).Scan(&total); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id LIMIT $%d OFFSET $%d",
		columns, spec.from, where, len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, query, append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, err
		}
	}
	return total, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// foreignKeyViolation maps a 23503 error onto ErrUnknownReference.
func foreignKeyViolation(err error) error {
	if isForeignKeyViolation(err) {
		return store.ErrUnknownReference
	}
	return err
}

// stillReferenced maps a 23503 raised by a DELETE onto inUse: a row that
// points at the deleted one appeared after the existence check.
func stillReferenced(err, inUse error) error {
	if isForeignKeyViolation(err) {
		return inUse
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func nullIfZero(value int64) interface{} {
	if value == 0 {
		return nil
	}
	return value
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
