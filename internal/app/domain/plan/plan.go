// Package plan defines subscription tiers and the capability limits each
// tier grants. The limit table here is the single source of truth; call
// sites must never compare against the raw sentinel.
package plan

import (
	"fmt"
	"strings"
)

// Tier is the closed set of subscription plans.
type Tier string

const (
	Free   Tier = "FREE"
	Simple Tier = "SIMPLE"
	Pro    Tier = "PRO"
)

// Unlimited is the sentinel for numeric limits with no cap. Compare through
// IsUnlimited, never against the literal.
const Unlimited = -1

// IsUnlimited reports whether a numeric limit means "no cap".
func IsUnlimited(n int) bool {
	return n == Unlimited
}

// ParseTier normalizes a stored or user-supplied tier string.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case Free:
		return Free, nil
	case Simple:
		return Simple, nil
	case Pro:
		return Pro, nil
	default:
		return "", fmt.Errorf("unknown plan tier %q", s)
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case Free, Simple, Pro:
		return true
	}
	return false
}

// Limits describes the numeric and boolean capabilities of a tier.
type Limits struct {
	MaxDrivers        int
	MaxVehicles       int
	MaxPlatforms      int
	MaxExpenseTypes   int
	MaxPaymentMethods int
	MaxBudgets        int
	MaxGoals          int
	MaxMonthlyExports int
	CSVExport         bool
	AdvancedReports   bool
}

var limitTable = map[Tier]Limits{
	Free: {
		MaxDrivers:        1,
		MaxVehicles:       1,
		MaxPlatforms:      2,
		MaxExpenseTypes:   5,
		MaxPaymentMethods: 2,
		MaxBudgets:        1,
		MaxGoals:          1,
		MaxMonthlyExports: 0,
		CSVExport:         false,
		AdvancedReports:   false,
	},
	Simple: {
		MaxDrivers:        3,
		MaxVehicles:       3,
		MaxPlatforms:      5,
		MaxExpenseTypes:   15,
		MaxPaymentMethods: 5,
		MaxBudgets:        5,
		MaxGoals:          5,
		MaxMonthlyExports: 10,
		CSVExport:         true,
		AdvancedReports:   false,
	},
	Pro: {
		MaxDrivers:        Unlimited,
		MaxVehicles:       Unlimited,
		MaxPlatforms:      Unlimited,
		MaxExpenseTypes:   Unlimited,
		MaxPaymentMethods: Unlimited,
		MaxBudgets:        Unlimited,
		MaxGoals:          Unlimited,
		MaxMonthlyExports: Unlimited,
		CSVExport:         true,
		AdvancedReports:   true,
	},
}

// LimitsFor returns the limit set for a tier. Unknown tiers get the Free
// limits so a corrupt row can never unlock paid capacity.
func LimitsFor(t Tier) Limits {
	if limits, ok := limitTable[t]; ok {
		return limits
	}
	return limitTable[Free]
}

// BillingInterval is the checkout billing cadence.
type BillingInterval string

const (
	Monthly BillingInterval = "MONTHLY"
	Yearly  BillingInterval = "YEARLY"
)

// ParseInterval normalizes a billing interval string.
func ParseInterval(s string) (BillingInterval, error) {
	switch BillingInterval(strings.ToUpper(strings.TrimSpace(s))) {
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", fmt.Errorf("unknown billing interval %q", s)
	}
}
