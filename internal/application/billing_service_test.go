package application

import (
	"context"
	"errors"
	"testing"

	"github.com/prasetya/cardvault/internal/domain/entity"
	repo "github.com/prasetya/cardvault/internal/domain/repository"
	"github.com/prasetya/cardvault/internal/infrastructure/stripepay"
	"github.com/prasetya/cardvault/pkg/mailer"
)

type mockRepo struct {
	createFn             func(ctx context.Context, u *entity.User) error
	getByIDFn            func(ctx context.Context, id string) (*entity.User, error)
	getByEmailFn         func(ctx context.Context, email string) (*entity.User, error)
	linkStripeCustomerFn func(ctx context.Context, userID, customerID string) (bool, error)
	updateBillingInfoFn  func(ctx context.Context, userID string, b entity.BillingInfo) error
	setCardLast4Fn       func(ctx context.Context, userID, last4 string) error
}

var _ repo.UserRepository = (*mockRepo)(nil)

func (m *mockRepo) Create(ctx context.Context, u *entity.User) error {
	return m.createFn(ctx, u)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.getByEmailFn(ctx, email)
}

func (m *mockRepo) LinkStripeCustomer(ctx context.Context, userID, customerID string) (bool, error) {
	return m.linkStripeCustomerFn(ctx, userID, customerID)
}

func (m *mockRepo) UpdateBillingInfo(ctx context.Context, userID string, b entity.BillingInfo) error {
	return m.updateBillingInfoFn(ctx, userID, b)
}

func (m *mockRepo) SetCardLast4(ctx context.Context, userID, last4 string) error {
	return m.setCardLast4Fn(ctx, userID, last4)
}

type mockGateway struct {
	createCustomerFn          func(ctx context.Context, email, name string) (string, error)
	deleteCustomerFn          func(ctx context.Context, customerID string) error
	defaultPaymentMethodFn    func(ctx context.Context, customerID string) (string, error)
	createSetupIntentFn       func(ctx context.Context, customerID string) (string, error)
	createPaymentIntentFn     func(ctx context.Context, customerID string, amount int64, currency string) (string, error)
	attachPaymentMethodFn     func(ctx context.Context, customerID, paymentMethodID string) error
	setDefaultPaymentMethodFn func(ctx context.Context, customerID, paymentMethodID string) error
	retrievePaymentMethodFn   func(ctx context.Context, paymentMethodID string) (*stripepay.Card, error)
	chargeFn                  func(ctx context.Context, customerID, paymentMethodID string, amount int64, currency string) (*stripepay.ChargeResult, error)
}

var _ stripepay.Gateway = (*mockGateway)(nil)

func (m *mockGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	return m.createCustomerFn(ctx, email, name)
}

func (m *mockGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	return m.deleteCustomerFn(ctx, customerID)
}

func (m *mockGateway) DefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	return m.defaultPaymentMethodFn(ctx, customerID)
}

func (m *mockGateway) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	return m.createSetupIntentFn(ctx, customerID)
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, customerID string, amount int64, currency string) (string, error) {
	return m.createPaymentIntentFn(ctx, customerID, amount, currency)
}

func (m *mockGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.attachPaymentMethodFn(ctx, customerID, paymentMethodID)
}

func (m *mockGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.setDefaultPaymentMethodFn(ctx, customerID, paymentMethodID)
}

func (m *mockGateway) RetrievePaymentMethod(ctx context.Context, paymentMethodID string) (*stripepay.Card, error) {
	return m.retrievePaymentMethodFn(ctx, paymentMethodID)
}

func (m *mockGateway) Charge(ctx context.Context, customerID, paymentMethodID string, amount int64, currency string) (*stripepay.ChargeResult, error) {
	return m.chargeFn(ctx, customerID, paymentMethodID, amount, currency)
}

type mockPublisher struct {
	jobs []any
}

func (m *mockPublisher) PublishJSON(ctx context.Context, body any) error {
	m.jobs = append(m.jobs, body)
	return nil
}

func billingSvc(r repo.UserRepository, gw stripepay.Gateway) *BillingService {
	return &BillingService{Repo: r, Gateway: gw, DefaultCurrency: "usd"}
}

func linkedUserFixture() *entity.User {
	return &entity.User{ID: "u1", Email: "a@b.test", Name: "Alice", StripeCustomerID: "cus_1"}
}

func TestEnsureCustomer_CreatesAndLinks(t *testing.T) {
	created := 0
	var storedBilling entity.BillingInfo
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: "a@b.test", Name: "Alice"}, nil
		},
		linkStripeCustomerFn: func(ctx context.Context, userID, customerID string) (bool, error) {
			if customerID != "cus_new" {
				t.Fatalf("linking unexpected customer %q", customerID)
			}
			return true, nil
		},
		updateBillingInfoFn: func(ctx context.Context, userID string, b entity.BillingInfo) error {
			storedBilling = b
			return nil
		},
	}
	gw := &mockGateway{
		createCustomerFn: func(ctx context.Context, email, name string) (string, error) {
			created++
			return "cus_new", nil
		},
	}

	billing := entity.BillingInfo{Address: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701"}
	id, err := billingSvc(r, gw).EnsureCustomer(context.Background(), "u1", billing)
	if err != nil {
		t.Fatalf("EnsureCustomer: %v", err)
	}
	if id != "cus_new" {
		t.Fatalf("customer id = %q, want cus_new", id)
	}
	if created != 1 {
		t.Fatalf("CreateCustomer called %d times, want 1", created)
	}
	if storedBilling != billing {
		t.Fatalf("billing info not persisted: %+v", storedBilling)
	}
}

func TestEnsureCustomer_IdempotentWhenLinked(t *testing.T) {
	updates := 0
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			return linkedUserFixture(), nil
		},
		updateBillingInfoFn: func(ctx context.Context, userID string, b entity.BillingInfo) error {
			updates++
			return nil
		},
	}
	gw := &mockGateway{
		createCustomerFn: func(ctx context.Context, email, name string) (string, error) {
			t.Fatal("CreateCustomer must not be called for a linked user")
			return "", nil
		},
	}

	svc := billingSvc(r, gw)
	for i := 0; i < 2; i++ {
		id, err := svc.EnsureCustomer(context.Background(), "u1", entity.BillingInfo{City: "Reno"})
		if err != nil {
			t.Fatalf("EnsureCustomer: %v", err)
		}
		if id != "cus_1" {
			t.Fatalf("customer id = %q, want cus_1", id)
		}
	}
	if updates != 2 {
		t.Fatalf("billing info updated %d times, want 2 (last write wins)", updates)
	}
}

func TestEnsureCustomer_LostRaceReusesWinner(t *testing.T) {
	calls := 0
	deleted := ""
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			calls++
			u := &entity.User{ID: "u1", Email: "a@b.test", Name: "Alice"}
			if calls > 1 {
				// second read sees the winner's link
				u.StripeCustomerID = "cus_winner"
			}
			return u, nil
		},
		linkStripeCustomerFn: func(ctx context.Context, userID, customerID string) (bool, error) {
			return false, nil
		},
		updateBillingInfoFn: func(ctx context.Context, userID string, b entity.BillingInfo) error {
			return nil
		},
	}
	gw := &mockGateway{
		createCustomerFn: func(ctx context.Context, email, name string) (string, error) {
			return "cus_loser", nil
		},
		deleteCustomerFn: func(ctx context.Context, customerID string) error {
			deleted = customerID
			return nil
		},
	}

	id, err := billingSvc(r, gw).EnsureCustomer(context.Background(), "u1", entity.BillingInfo{})
	if err != nil {
		t.Fatalf("EnsureCustomer: %v", err)
	}
	if id != "cus_winner" {
		t.Fatalf("customer id = %q, want the winner's cus_winner", id)
	}
	if deleted != "cus_loser" {
		t.Fatalf("orphan customer %q deleted, want cus_loser", deleted)
	}
}

func TestCreateSetupIntent_RequiresLinkedCustomer(t *testing.T) {
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			return &entity.User{ID: "u1"}, nil
		},
	}
	gw := &mockGateway{
		createSetupIntentFn: func(ctx context.Context, customerID string) (string, error) {
			t.Fatal("CreateSetupIntent must not reach the gateway without a customer")
			return "", nil
		},
	}

	_, err := billingSvc(r, gw).CreateSetupIntent(context.Background(), "u1")
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("err = %v, want ErrCustomerNotFound", err)
	}
}

func TestCreatePaymentIntent_DefaultsCurrency(t *testing.T) {
	var gotCurrency string
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			return linkedUserFixture(), nil
		},
	}
	gw := &mockGateway{
		createPaymentIntentFn: func(ctx context.Context, customerID string, amount int64, currency string) (string, error) {
			gotCurrency = currency
			return "pi_secret", nil
		},
	}

	secret, err := billingSvc(r, gw).CreatePaymentIntent(context.Background(), "u1", 1099, "")
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	if secret != "pi_secret" {
		t.Fatalf("secret = %q", secret)
	}
	if gotCurrency != "usd" {
		t.Fatalf("currency = %q, want usd default", gotCurrency)
	}
}

func TestSavePaymentMethod(t *testing.T) {
	tests := []struct {
		name        string
		cardOwner   string
		wantAttach  bool
		wantErr     error
		wantDefault bool
	}{
		{name: "unattached method gets attached", cardOwner: "", wantAttach: true, wantDefault: true},
		{name: "already on this customer is skipped", cardOwner: "cus_1", wantAttach: false, wantDefault: true},
		{name: "owned by another customer is rejected", cardOwner: "cus_other", wantErr: ErrInvalidPaymentMethod},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attached := false
			defaulted := false
			savedLast4 := ""
			r := &mockRepo{
				getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
					return linkedUserFixture(), nil
				},
				setCardLast4Fn: func(ctx context.Context, userID, last4 string) error {
					savedLast4 = last4
					return nil
				},
			}
			gw := &mockGateway{
				retrievePaymentMethodFn: func(ctx context.Context, paymentMethodID string) (*stripepay.Card, error) {
					return &stripepay.Card{ID: paymentMethodID, CustomerID: tc.cardOwner, Brand: "visa", Last4: "4242"}, nil
				},
				attachPaymentMethodFn: func(ctx context.Context, customerID, paymentMethodID string) error {
					attached = true
					return nil
				},
				setDefaultPaymentMethodFn: func(ctx context.Context, customerID, paymentMethodID string) error {
					defaulted = true
					return nil
				},
			}

			last4, err := billingSvc(r, gw).SavePaymentMethod(context.Background(), "u1", "pm_1")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SavePaymentMethod: %v", err)
			}
			if last4 != "4242" || savedLast4 != "4242" {
				t.Fatalf("last4 = %q / persisted %q, want 4242", last4, savedLast4)
			}
			if attached != tc.wantAttach {
				t.Fatalf("attach called = %v, want %v", attached, tc.wantAttach)
			}
			if defaulted != tc.wantDefault {
				t.Fatalf("set default called = %v, want %v", defaulted, tc.wantDefault)
			}
		})
	}
}

func TestSavePaymentMethod_RetrieveErrors(t *testing.T) {
	transient := errors.New("connection reset by peer")
	tests := []struct {
		name        string
		retrieveErr error
		wantInvalid bool
	}{
		{name: "unknown method is the client's fault", retrieveErr: stripepay.ErrPaymentMethodNotFound, wantInvalid: true},
		{name: "transient provider failure passes through", retrieveErr: transient, wantInvalid: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &mockRepo{
				getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
					return linkedUserFixture(), nil
				},
			}
			gw := &mockGateway{
				retrievePaymentMethodFn: func(ctx context.Context, paymentMethodID string) (*stripepay.Card, error) {
					return nil, tc.retrieveErr
				},
			}

			_, err := billingSvc(r, gw).SavePaymentMethod(context.Background(), "u1", "pm_bogus")
			if tc.wantInvalid {
				if !errors.Is(err, ErrInvalidPaymentMethod) {
					t.Fatalf("err = %v, want ErrInvalidPaymentMethod", err)
				}
				return
			}
			if errors.Is(err, ErrInvalidPaymentMethod) {
				t.Fatal("transient failure must not be reported as an invalid payment method")
			}
			if !errors.Is(err, transient) {
				t.Fatalf("err = %v, want the provider error unchanged", err)
			}
		})
	}
}

func TestCharge_NoDefaultFailsFast(t *testing.T) {
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			return linkedUserFixture(), nil
		},
	}
	gw := &mockGateway{
		defaultPaymentMethodFn: func(ctx context.Context, customerID string) (string, error) {
			return "", nil
		},
		chargeFn: func(ctx context.Context, customerID, paymentMethodID string, amount int64, currency string) (*stripepay.ChargeResult, error) {
			t.Fatal("Charge must not reach the gateway without a default method")
			return nil, nil
		},
	}

	_, err := billingSvc(r, gw).Charge(context.Background(), "u1", 500, "usd")
	if !errors.Is(err, ErrNoDefaultPaymentMethod) {
		t.Fatalf("err = %v, want ErrNoDefaultPaymentMethod", err)
	}
}

func TestCharge_SuccessPublishesReceipt(t *testing.T) {
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			u := linkedUserFixture()
			u.CardLast4 = "4242"
			return u, nil
		},
	}
	gw := &mockGateway{
		defaultPaymentMethodFn: func(ctx context.Context, customerID string) (string, error) {
			return "pm_1", nil
		},
		chargeFn: func(ctx context.Context, customerID, paymentMethodID string, amount int64, currency string) (*stripepay.ChargeResult, error) {
			if customerID != "cus_1" || paymentMethodID != "pm_1" {
				t.Fatalf("charge against %s/%s", customerID, paymentMethodID)
			}
			return &stripepay.ChargeResult{IntentID: "pi_9", Status: "succeeded", Amount: amount, Currency: currency}, nil
		},
	}
	pub := &mockPublisher{}
	svc := billingSvc(r, gw)
	svc.Pub = pub
	svc.MailEnabled = true

	res, err := svc.Charge(context.Background(), "u1", 1099, "usd")
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if res.Status != "succeeded" || res.IntentID != "pi_9" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(pub.jobs) != 1 {
		t.Fatalf("published %d jobs, want 1 receipt", len(pub.jobs))
	}
}

func TestCharge_ReceiptUsesChargedCardDigits(t *testing.T) {
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			u := linkedUserFixture()
			// stored digits lag behind a default-card change mid-flight
			u.CardLast4 = "1111"
			return u, nil
		},
	}
	gw := &mockGateway{
		defaultPaymentMethodFn: func(ctx context.Context, customerID string) (string, error) {
			return "pm_new", nil
		},
		chargeFn: func(ctx context.Context, customerID, paymentMethodID string, amount int64, currency string) (*stripepay.ChargeResult, error) {
			return &stripepay.ChargeResult{IntentID: "pi_1", Status: "succeeded", Amount: amount, Currency: currency, Last4: "4242"}, nil
		},
	}
	pub := &mockPublisher{}
	svc := billingSvc(r, gw)
	svc.Pub = pub
	svc.MailEnabled = true

	if _, err := svc.Charge(context.Background(), "u1", 500, "usd"); err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if len(pub.jobs) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.jobs))
	}
	job, ok := pub.jobs[0].(mailer.EmailJob)
	if !ok {
		t.Fatalf("published job has type %T", pub.jobs[0])
	}
	if job.Data["Last4"] != "4242" {
		t.Fatalf("receipt Last4 = %v, want the charged card's 4242", job.Data["Last4"])
	}
}

func TestUpdateBillingInfo_MapsNotFound(t *testing.T) {
	r := &mockRepo{
		updateBillingInfoFn: func(ctx context.Context, userID string, b entity.BillingInfo) error {
			return repo.ErrNotFound
		},
	}
	err := billingSvc(r, &mockGateway{}).UpdateBillingInfo(context.Background(), "ghost", entity.BillingInfo{})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
