package entity

import (
	"time"
)

// BillingInfo holds free-form postal address fields. Writes are
// last-write-wins; no history is retained.
type BillingInfo struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// User is the aggregate root for the identity + billing domain.
// Password holds a bcrypt hash and is never serialized to clients.
//
// StripeCustomerID is empty until the first billing-info submission links
// the user to a remote customer; once set it is never replaced.
// CardLast4 mirrors the display digits of the current default card.
type User struct {
	ID               string
	Email            string
	Password         string
	Name             string
	StripeCustomerID string
	Billing          BillingInfo
	CardLast4        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Linked reports whether the user already has a remote customer record.
func (u *User) Linked() bool { return u.StripeCustomerID != "" }
