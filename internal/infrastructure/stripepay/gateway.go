// Package stripepay wraps the Stripe-hosted objects this service touches:
// customers, setup/payment intents and payment methods. The service stores
// only identifiers; Stripe remains the source of truth.
package stripepay

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrPaymentMethodNotFound reports a payment method id that does not exist
// at the provider, as opposed to a transient provider failure.
var ErrPaymentMethodNotFound = errors.New("payment method not found")

// Card is the display metadata of a stored payment method.
type Card struct {
	ID         string
	CustomerID string
	Brand      string
	Last4      string
}

// ChargeResult reports the outcome of an off-session confirmed payment
// intent. Last4 carries the digits of the method actually charged, which may
// differ from the stored display digits if the default changed concurrently.
type ChargeResult struct {
	IntentID string
	Status   string
	Amount   int64
	Currency string
	Last4    string
}

// Gateway is the payment-provider surface used by the billing service.
// Implementations make one remote call per method; no retries.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	DefaultPaymentMethod(ctx context.Context, customerID string) (string, error)
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
	CreatePaymentIntent(ctx context.Context, customerID string, amount int64, currency string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	RetrievePaymentMethod(ctx context.Context, paymentMethodID string) (*Card, error)
	Charge(ctx context.Context, customerID, paymentMethodID string, amount int64, currency string) (*ChargeResult, error)
}

// StripeGateway implements Gateway on the stripe-go client.
type StripeGateway struct {
	api *client.API
}

func New(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	cust, err := g.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (g *StripeGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	_, err := g.api.Customers.Del(customerID, params)
	return err
}

// DefaultPaymentMethod returns the id of the customer's invoice default
// payment method, or "" when none is set.
func (g *StripeGateway) DefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return "", err
	}
	if cust.InvoiceSettings == nil || cust.InvoiceSettings.DefaultPaymentMethod == nil {
		return "", nil
	}
	return cust.InvoiceSettings.DefaultPaymentMethod.ID, nil
}

func (g *StripeGateway) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	si, err := g.api.SetupIntents.New(params)
	if err != nil {
		return "", err
	}
	return si.ClientSecret, nil
}

// CreatePaymentIntent requests an intent that also saves the card for later
// off-session use, matching the first-payment wizard flow.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, customerID string, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SetupFutureUsage:   stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession)),
	}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	_, err := g.api.PaymentMethods.Attach(paymentMethodID, params)
	return err
}

func (g *StripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	_, err := g.api.Customers.Update(customerID, params)
	return err
}

func (g *StripeGateway) RetrievePaymentMethod(ctx context.Context, paymentMethodID string) (*Card, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	pm, err := g.api.PaymentMethods.Get(paymentMethodID, params)
	if err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) && (sErr.Code == stripe.ErrorCodeResourceMissing || sErr.Type == stripe.ErrorTypeInvalidRequest) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	card := &Card{ID: pm.ID}
	if pm.Customer != nil {
		card.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		card.Brand = string(pm.Card.Brand)
		card.Last4 = pm.Card.Last4
	}
	return card, nil
}

// Charge confirms a payment intent against a saved method without the
// cardholder present. Provider failures surface to the caller unchanged.
func (g *StripeGateway) Charge(ctx context.Context, customerID, paymentMethodID string, amount int64, currency string) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(customerID),
		PaymentMethod: stripe.String(paymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("payment_method")
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	res := &ChargeResult{
		IntentID: pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
	}
	if pi.PaymentMethod != nil && pi.PaymentMethod.Card != nil {
		res.Last4 = pi.PaymentMethod.Card.Last4
	}
	return res, nil
}

var _ Gateway = (*StripeGateway)(nil)
