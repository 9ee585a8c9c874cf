package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smarttask/backend/domain"
	"github.com/smarttask/backend/repository"
)

const uniqueViolation = "23505"

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed credential store.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil || user.Email == "" || user.PasswordDigest == "" {
		return domain.ErrInvalidPayload
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO users (id, email, password_digest)
	VALUES ($1, $2, $3)
	RETURNING created_at
	`

	if err := r.pool.QueryRow(ctx, query, user.ID, user.Email, user.PasswordDigest).Scan(&user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateEmail
		}
		return domain.WrapError(domain.ErrCodeInternal, "insert user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
	SELECT id, email, password_digest, created_at
	FROM users
	WHERE id = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, id), domain.ErrUserNotFound)
}

func (r *userRepository) GetByCredentials(ctx context.Context, email, digest string) (*domain.User, error) {
	const query = `
	SELECT id, email, password_digest, created_at
	FROM users
	WHERE email = $1 AND password_digest = $2
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, email, digest), domain.ErrInvalidCredentials)
}

func (r *userRepository) scanUser(row pgx.Row, notFound error) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordDigest, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "query user", err)
	}
	return &user, nil
}
