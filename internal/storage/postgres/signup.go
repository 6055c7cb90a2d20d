package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddline/storefront/internal/signup"
)

const (
	insertSignupSQL = `INSERT INTO signups (email) VALUES ($1)`
	existsSignupSQL = `SELECT EXISTS (SELECT 1 FROM signups WHERE email = $1)`
	listSignupsSQL  = `SELECT email FROM signups`

	uniqueViolationCode = "23505"
)

var _ signup.Repository = (*SignupRepository)(nil)

// SignupRepository implements signup.Repository backed by PostgreSQL.
type SignupRepository struct {
	pool *pgxpool.Pool
}

// NewSignupRepository returns a SignupRepository that uses the given pool.
func NewSignupRepository(pool *pgxpool.Pool) *SignupRepository {
	return &SignupRepository{pool: pool}
}

// Insert records a new signup. A duplicate address surfaces as
// signup.ErrAlreadyRegistered via the primary key constraint.
func (r *SignupRepository) Insert(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, insertSignupSQL, email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return signup.ErrAlreadyRegistered
		}
		return fmt.Errorf("inserting signup %q: %w", email, err)
	}
	return nil
}

// Exists reports whether email is already registered.
func (r *SignupRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, existsSignupSQL, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking signup %q: %w", email, err)
	}
	return exists, nil
}

// ListEmails returns every registered address, used to warm the signup
// prefilter at startup.
func (r *SignupRepository) ListEmails(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listSignupsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing signups: %w", err)
	}

	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing signups: %w", err)
	}
	return emails, nil
}
