package user

import (
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/plan"
)

// User is a tenant of the service. All other entities hang off a user and
// are never shared across users.
type User struct {
	ID                 string
	Email              string
	Name               string
	Tier               plan.Tier
	OnboardedAt        time.Time
	MonthlyExportCount int
	ExportCountResetAt time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Onboarded reports whether the one-time setup flow has completed.
func (u User) Onboarded() bool {
	return !u.OnboardedAt.IsZero()
}

// Preferences holds regional settings and the default pointers used to
// pre-fill data-entry forms. The pointers are weak references: lookup
// convenience only, never ownership.
type Preferences struct {
	UserID           string
	Currency         string
	Locale           string
	WeekStart        string
	DefaultDriverID  string
	DefaultVehicleID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
