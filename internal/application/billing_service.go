package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prasetya/cardvault/internal/domain/entity"
	repo "github.com/prasetya/cardvault/internal/domain/repository"
	"github.com/prasetya/cardvault/internal/infrastructure/stripepay"
	"github.com/prasetya/cardvault/internal/metrics"
	"github.com/prasetya/cardvault/pkg/mailer"
)

var (
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrNoDefaultPaymentMethod = errors.New("customer has no default payment method")
)

// ReceiptPublisher enqueues email jobs for the receipt worker.
type ReceiptPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// BillingService sequences the remote calls of the card-on-file flow and
// persists the resulting identifiers. Each method is independently
// re-entrant based on the stored fields; there is no durable in-progress
// state and no retry or compensation on failure.
type BillingService struct {
	Repo            repo.UserRepository
	Gateway         stripepay.Gateway
	Pub             ReceiptPublisher
	Metrics         metrics.Recorder
	Logger          *logrus.Logger
	DefaultCurrency string
	MailEnabled     bool
}

func NewBillingService(r repo.UserRepository, gw stripepay.Gateway, pub ReceiptPublisher, rec metrics.Recorder, logger *logrus.Logger, defaultCurrency string, mailEnabled bool) *BillingService {
	return &BillingService{
		Repo:            r,
		Gateway:         gw,
		Pub:             pub,
		Metrics:         rec,
		Logger:          logger,
		DefaultCurrency: defaultCurrency,
		MailEnabled:     mailEnabled,
	}
}

func (s *BillingService) observe(op string, start time.Time, err error) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.RecordProviderCall(op, err)
	s.Metrics.RecordProviderLatency(op, time.Since(start))
}

func (s *BillingService) user(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// linkedUser resolves the user and requires an existing remote customer.
func (s *BillingService) linkedUser(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Linked() {
		return nil, ErrCustomerNotFound
	}
	return u, nil
}

// EnsureCustomer creates a remote customer for the user if none is linked
// yet and overwrites the stored billing info unconditionally. The link is a
// compare-and-set: when two calls race, the loser deletes its freshly
// created remote customer and reuses the winner's id.
func (s *BillingService) EnsureCustomer(ctx context.Context, userID string, billing entity.BillingInfo) (string, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID := u.StripeCustomerID
	if customerID == "" {
		start := time.Now()
		created, err := s.Gateway.CreateCustomer(ctx, u.Email, u.Name)
		s.observe("create_customer", start, err)
		if err != nil {
			return "", err
		}
		won, err := s.Repo.LinkStripeCustomer(ctx, u.ID, created)
		if err != nil {
			return "", err
		}
		if won {
			customerID = created
		} else {
			// Lost the race: reuse the winner's id, discard ours.
			if dErr := s.Gateway.DeleteCustomer(ctx, created); dErr != nil && s.Logger != nil {
				s.Logger.WithError(dErr).WithField("customer_id", created).Warn("orphan customer cleanup failed")
			}
			fresh, err := s.user(ctx, userID)
			if err != nil {
				return "", err
			}
			customerID = fresh.StripeCustomerID
		}
	}

	if err := s.Repo.UpdateBillingInfo(ctx, u.ID, billing); err != nil {
		return "", err
	}
	return customerID, nil
}

// UpdateBillingInfo overwrites the address fields; last write wins.
func (s *BillingService) UpdateBillingInfo(ctx context.Context, userID string, billing entity.BillingInfo) error {
	if err := s.Repo.UpdateBillingInfo(ctx, userID, billing); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// CreateSetupIntent starts a card-save flow and returns the client secret
// the wizard confirms in the browser.
func (s *BillingService) CreateSetupIntent(ctx context.Context, userID string) (string, error) {
	u, err := s.linkedUser(ctx, userID)
	if err != nil {
		return "", err
	}
	start := time.Now()
	secret, err := s.Gateway.CreateSetupIntent(ctx, u.StripeCustomerID)
	s.observe("create_setup_intent", start, err)
	return secret, err
}

// CreatePaymentIntent starts a first-payment flow that also saves the card
// for later off-session use.
func (s *BillingService) CreatePaymentIntent(ctx context.Context, userID string, amount int64, currency string) (string, error) {
	u, err := s.linkedUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if currency == "" {
		currency = s.DefaultCurrency
	}
	start := time.Now()
	secret, err := s.Gateway.CreatePaymentIntent(ctx, u.StripeCustomerID, amount, currency)
	s.observe("create_payment_intent", start, err)
	return secret, err
}

// SavePaymentMethod attaches a confirmed payment method to the caller's
// customer, marks it the invoice default and persists its display digits.
// Attaching is idempotent: a method already on this customer is left alone,
// one belonging to another customer is rejected.
func (s *BillingService) SavePaymentMethod(ctx context.Context, userID, paymentMethodID string) (string, error) {
	u, err := s.linkedUser(ctx, userID)
	if err != nil {
		return "", err
	}

	start := time.Now()
	card, err := s.Gateway.RetrievePaymentMethod(ctx, paymentMethodID)
	s.observe("retrieve_payment_method", start, err)
	if err != nil {
		// only a missing method is the client's fault; transient provider
		// failures surface unchanged
		if errors.Is(err, stripepay.ErrPaymentMethodNotFound) {
			return "", ErrInvalidPaymentMethod
		}
		return "", err
	}

	switch card.CustomerID {
	case "":
		start = time.Now()
		err = s.Gateway.AttachPaymentMethod(ctx, u.StripeCustomerID, paymentMethodID)
		s.observe("attach_payment_method", start, err)
		if err != nil {
			return "", err
		}
	case u.StripeCustomerID:
		// already attached to this customer
	default:
		return "", ErrInvalidPaymentMethod
	}

	start = time.Now()
	err = s.Gateway.SetDefaultPaymentMethod(ctx, u.StripeCustomerID, paymentMethodID)
	s.observe("set_default_payment_method", start, err)
	if err != nil {
		return "", err
	}

	if err := s.Repo.SetCardLast4(ctx, u.ID, card.Last4); err != nil {
		return "", err
	}

	s.publish(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateCardSaved,
		Data: map[string]any{
			"Name":  u.Name,
			"Brand": card.Brand,
			"Last4": card.Last4,
		},
	})
	return card.Last4, nil
}

// DefaultPaymentMethod reports the id of the current default method, or ""
// when none is set. Used by clients to gate the charge flow.
func (s *BillingService) DefaultPaymentMethod(ctx context.Context, userID string) (string, error) {
	u, err := s.linkedUser(ctx, userID)
	if err != nil {
		return "", err
	}
	start := time.Now()
	pm, err := s.Gateway.DefaultPaymentMethod(ctx, u.StripeCustomerID)
	s.observe("get_customer", start, err)
	return pm, err
}

// Charge runs one off-session confirmed payment against the default method.
// Without a default method it fails fast and never reaches the charge API.
// A transient provider failure surfaces directly; the caller decides whether
// to retry.
func (s *BillingService) Charge(ctx context.Context, userID string, amount int64, currency string) (*stripepay.ChargeResult, error) {
	u, err := s.linkedUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pm, err := s.Gateway.DefaultPaymentMethod(ctx, u.StripeCustomerID)
	s.observe("get_customer", start, err)
	if err != nil {
		return nil, err
	}
	if pm == "" {
		return nil, ErrNoDefaultPaymentMethod
	}

	if currency == "" {
		currency = s.DefaultCurrency
	}
	start = time.Now()
	res, err := s.Gateway.Charge(ctx, u.StripeCustomerID, pm, amount, currency)
	s.observe("charge", start, err)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordCharge("failed")
		}
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.RecordCharge(res.Status)
	}

	// receipt shows the digits of the method actually charged, not the
	// stored display digits, which may be stale if the default just changed
	last4 := res.Last4
	if last4 == "" {
		last4 = u.CardLast4
	}
	s.publish(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateReceipt,
		Data: map[string]any{
			"Name":       u.Name,
			"Amount":     res.Amount,
			"Currency":   res.Currency,
			"Reference":  res.IntentID,
			"Last4":      last4,
			"CustomerID": u.StripeCustomerID,
		},
	})
	return res, nil
}

func (s *BillingService) publish(ctx context.Context, job mailer.EmailJob) {
	if s.Pub == nil || !s.MailEnabled {
		return
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("template", job.Template).Warn("receipt publish failed")
	}
}
