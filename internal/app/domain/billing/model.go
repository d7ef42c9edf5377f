package billing

import (
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/plan"
)

// CheckoutSelection is a plan choice stashed before onboarding completes,
// read once and cleared when the checkout is initiated.
type CheckoutSelection struct {
	UserID    string
	Tier      plan.Tier
	Interval  plan.BillingInterval
	StashedAt time.Time
}

// CheckoutSession is the provider's answer to a checkout initiation.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}
