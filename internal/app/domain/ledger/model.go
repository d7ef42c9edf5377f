// Package ledger holds the time-stamped monetary records. Besides reporting,
// these rows are the aggregation input for usage-based form defaults.
package ledger

import "time"

// Revenue is money earned, optionally linked to the driver, vehicle,
// platform, and payment method involved. Empty reference ids mean unlinked.
type Revenue struct {
	ID              string
	UserID          string
	DriverID        string
	VehicleID       string
	PlatformID      string
	PaymentMethodID string
	Amount          float64
	Description     string
	OccurredAt      time.Time
	CreatedAt       time.Time
}

// Expense is money spent, categorized by an expense type.
type Expense struct {
	ID              string
	UserID          string
	DriverID        string
	VehicleID       string
	ExpenseTypeID   string
	PaymentMethodID string
	Amount          float64
	Description     string
	OccurredAt      time.Time
	CreatedAt       time.Time
}

// FrequencyCount is one row of a grouped reference count, ordered most
// frequent first by the store.
type FrequencyCount struct {
	ID    string
	Count int
}
