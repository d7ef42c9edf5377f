// Package catalog holds the per-user lookup lists referenced by ledger
// entries: gig platforms, expense types, and payment methods.
package catalog

import "time"

// Platform is a gig platform the user works for (e.g. a rideshare app).
type Platform struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpenseType categorizes expenses (fuel, maintenance, insurance...).
type ExpenseType struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentMethodKind is the closed set of payment method categories.
type PaymentMethodKind string

const (
	KindCash PaymentMethodKind = "cash"
	KindCard PaymentMethodKind = "card"
	KindApp  PaymentMethodKind = "app"
)

// Valid reports whether k is a known kind.
func (k PaymentMethodKind) Valid() bool {
	switch k {
	case KindCash, KindCard, KindApp:
		return true
	}
	return false
}

// PaymentMethod is how a revenue or expense was settled.
type PaymentMethod struct {
	ID        string
	UserID    string
	Name      string
	Kind      PaymentMethodKind
	CreatedAt time.Time
	UpdatedAt time.Time
}
