package postgres

import (
	"context"
	"errors"
	"strings"

	"cafepanel/internal/models"
	"cafepanel/internal/store"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = "id, COALESCE(tenant_id, 0), COALESCE(branch_id, 0), email, role, password_hash, created_at"

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TenantID, &u.BranchID, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower($1) AND active = TRUE
	`, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, store.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND active = TRUE
	`, id))
	return user, notFound(err)
}

func (s *Store) CreateUser(ctx context.Context, u models.User, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	created, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (tenant_id, branch_id, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		nullIfZero(u.TenantID), nullIfZero(u.BranchID), strings.TrimSpace(u.Email), u.Role, string(hash)))
	return created, foreignKeyViolation(err)
}
