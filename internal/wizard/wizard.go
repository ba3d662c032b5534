// Package wizard implements the multi-step billing flow a client walks
// through: billing info, card entry, confirmation. Steps only advance when
// the corresponding server call succeeds; a failure keeps the user on the
// current step with the error surfaced.
package wizard

import (
	"context"
	"errors"

	"github.com/prasetya/cardvault/internal/domain/entity"
)

type Step int

const (
	StepBilling Step = iota
	StepCard
	StepConfirm
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepBilling:
		return "billing"
	case StepCard:
		return "card"
	case StepConfirm:
		return "confirmation"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

var ErrWrongStep = errors.New("operation not valid for current step")

// API is the server surface the wizard drives.
type API interface {
	CreateCustomer(ctx context.Context, billing entity.BillingInfo) (string, error)
	CreateSetupIntent(ctx context.Context) (string, error)
	SavePaymentMethod(ctx context.Context, paymentMethodID string) (string, error)
	CustomerInfo(ctx context.Context) (bool, error)
	Charge(ctx context.Context, amount int64, currency string) (string, error)
}

// Wizard holds the ephemeral client-side state between steps. Nothing here
// is durable; abandoning the wizard abandons the in-flight flow.
type Wizard struct {
	api  API
	step Step

	CustomerID   string
	ClientSecret string
	Last4        string
}

func New(api API) *Wizard {
	return &Wizard{api: api, step: StepBilling}
}

func (w *Wizard) Step() Step { return w.step }

// SubmitBilling ensures the remote customer and stores the billing address.
// Advances billing -> card.
func (w *Wizard) SubmitBilling(ctx context.Context, billing entity.BillingInfo) error {
	if w.step != StepBilling {
		return ErrWrongStep
	}
	id, err := w.api.CreateCustomer(ctx, billing)
	if err != nil {
		return err
	}
	w.CustomerID = id
	w.step = StepCard
	return nil
}

// BeginCardEntry obtains the client secret the card form confirms against.
// Stays on the card step.
func (w *Wizard) BeginCardEntry(ctx context.Context) error {
	if w.step != StepCard {
		return ErrWrongStep
	}
	secret, err := w.api.CreateSetupIntent(ctx)
	if err != nil {
		return err
	}
	w.ClientSecret = secret
	return nil
}

// ConfirmCard saves the confirmed payment method as the account default.
// Advances card -> confirmation.
func (w *Wizard) ConfirmCard(ctx context.Context, paymentMethodID string) error {
	if w.step != StepCard {
		return ErrWrongStep
	}
	last4, err := w.api.SavePaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return err
	}
	w.Last4 = last4
	w.step = StepConfirm
	return nil
}

// Finish verifies a default payment method is in place and, when amount is
// positive, runs the charge. Advances confirmation -> done.
func (w *Wizard) Finish(ctx context.Context, amount int64, currency string) (string, error) {
	if w.step != StepConfirm {
		return "", ErrWrongStep
	}
	hasDefault, err := w.api.CustomerInfo(ctx)
	if err != nil {
		return "", err
	}
	if !hasDefault {
		return "", errors.New("no default payment method on file")
	}
	status := "no charge"
	if amount > 0 {
		status, err = w.api.Charge(ctx, amount, currency)
		if err != nil {
			return "", err
		}
	}
	w.step = StepDone
	return status, nil
}
