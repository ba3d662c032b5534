package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prasetya/cardvault/internal/domain/entity"
)

// Client is the HTTP implementation of API against the cardvault server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// envelope mirrors the server's APIResponse shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("%s", env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, nil)
}

// Login authenticates and stores the bearer token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"email": email, "password": password,
	}, &out); err != nil {
		return err
	}
	c.Token = out.Token
	return nil
}

func (c *Client) CreateCustomer(ctx context.Context, billing entity.BillingInfo) (string, error) {
	var out struct {
		StripeCustomerID string `json:"stripe_customer_id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/create-customer", map[string]any{
		"billing_info": billing,
	}, &out)
	return out.StripeCustomerID, err
}

func (c *Client) CreateSetupIntent(ctx context.Context) (string, error) {
	var out struct {
		ClientSecret string `json:"client_secret"`
	}
	err := c.do(ctx, http.MethodPost, "/api/create-setup-intent", struct{}{}, &out)
	return out.ClientSecret, err
}

func (c *Client) SavePaymentMethod(ctx context.Context, paymentMethodID string) (string, error) {
	var out struct {
		Last4 string `json:"last4"`
	}
	err := c.do(ctx, http.MethodPost, "/api/save-payment-method", map[string]string{
		"payment_method_id": paymentMethodID,
	}, &out)
	return out.Last4, err
}

func (c *Client) CustomerInfo(ctx context.Context) (bool, error) {
	var out struct {
		HasDefault bool `json:"has_default"`
	}
	err := c.do(ctx, http.MethodGet, "/api/get-customer-info", nil, &out)
	return out.HasDefault, err
}

func (c *Client) Charge(ctx context.Context, amount int64, currency string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	err := c.do(ctx, http.MethodPost, "/api/charge", map[string]any{
		"amount": amount, "currency": currency,
	}, &out)
	return out.Status, err
}

var _ API = (*Client)(nil)
