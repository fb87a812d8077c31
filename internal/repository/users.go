package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attarco/checkout/internal/domain/identity"
	"github.com/attarco/checkout/internal/domain/notification"
)

const (
	findUserByKeyHashSQL = `SELECT id, name, email, is_staff, api_key_hash
		FROM users WHERE api_key_hash = $1`

	listAdminsSQL = `SELECT id, name, email FROM users WHERE is_staff = TRUE ORDER BY id`
)

var (
	_ identity.Repository         = (*UserRepository)(nil)
	_ notification.AdminDirectory = (*UserRepository)(nil)
)

// UserRepository resolves authenticated principals and enumerates the admin
// set. It implements both identity.Repository and the injected
// notification.AdminDirectory.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByKeyHash looks up the user owning the given API key hash. Returns
// identity.ErrUnknownKey when no user matches.
func (r *UserRepository) FindByKeyHash(ctx context.Context, hash string) (*identity.User, error) {
	rows, err := r.pool.Query(ctx, findUserByKeyHashSQL, hash)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}

	u, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (identity.User, error) {
		var u identity.User
		err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Staff, &u.KeyHash)
		return u, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUnknownKey
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

// ListAdmins returns every staff user.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]notification.Admin, error) {
	rows, err := r.pool.Query(ctx, listAdminsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query admins")
	}

	admins, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.Admin, error) {
		var a notification.Admin
		err := row.Scan(&a.ID, &a.Name, &a.Email)
		return a, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan admins")
	}
	return admins, nil
}
