package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prasetya/cardvault/internal/domain/entity"
	"github.com/prasetya/cardvault/internal/domain/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Name)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

const userColumns = `
	id, email, password_hash, name,
	COALESCE(stripe_customer_id, ''),
	COALESCE(billing_address, ''), COALESCE(billing_city, ''),
	COALESCE(billing_state, ''), COALESCE(billing_postal_code, ''),
	COALESCE(card_last4, ''),
	created_at, updated_at
`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name,
		&u.StripeCustomerID,
		&u.Billing.Address, &u.Billing.City, &u.Billing.State, &u.Billing.PostalCode,
		&u.CardLast4,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// LinkStripeCustomer performs a compare-and-set so two concurrent
// "ensure customer" calls cannot both persist their customer id.
func (r *UserRepository) LinkStripeCustomer(ctx context.Context, userID, customerID string) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET stripe_customer_id = $1, updated_at = now()
		WHERE id = $2 AND stripe_customer_id IS NULL
	`, customerID, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *UserRepository) UpdateBillingInfo(ctx context.Context, userID string, b entity.BillingInfo) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET billing_address = $1, billing_city = $2, billing_state = $3,
		    billing_postal_code = $4, updated_at = now()
		WHERE id = $5
	`, b.Address, b.City, b.State, b.PostalCode, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetCardLast4(ctx context.Context, userID, last4 string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET card_last4 = $1, updated_at = now()
		WHERE id = $2
	`, last4, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
