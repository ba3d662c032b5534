package repository

import (
	"context"
	"errors"

	"github.com/prasetya/cardvault/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a create would violate email uniqueness.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the persistence operations for the user aggregate.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// LinkStripeCustomer sets the stripe customer id iff it is still unset.
	// It reports whether this call won the link; on a lost race the caller
	// must re-read the user and reuse the stored id.
	LinkStripeCustomer(ctx context.Context, userID, customerID string) (bool, error)
	UpdateBillingInfo(ctx context.Context, userID string, b entity.BillingInfo) error
	SetCardLast4(ctx context.Context, userID, last4 string) error
}
