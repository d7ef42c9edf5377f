// Package limits enforces the plan limit table against live usage counts.
// Every check runs against the stores it is handed so callers can re-check
// inside a transaction.
package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/metrics"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Resource names a plan-limited collection.
type Resource string

const (
	ResourceDrivers        Resource = "drivers"
	ResourceVehicles       Resource = "vehicles"
	ResourcePlatforms      Resource = "platforms"
	ResourceExpenseTypes   Resource = "expense_types"
	ResourcePaymentMethods Resource = "payment_methods"
	ResourceBudgets        Resource = "budgets"
	ResourceGoals          Resource = "goals"
)

var resourceNouns = map[Resource]string{
	ResourceDrivers:        "driver",
	ResourceVehicles:       "vehicle",
	ResourcePlatforms:      "platform",
	ResourceExpenseTypes:   "expense type",
	ResourcePaymentMethods: "payment method",
	ResourceBudgets:        "budget",
	ResourceGoals:          "goal",
}

// Service answers "may this user create one more X" questions.
type Service struct {
	users storage.UserStore
	tx    storage.TxRunner
	log   *logger.Logger
}

// New constructs a limits service.
func New(users storage.UserStore, tx storage.TxRunner, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("limits")
	}
	return &Service{users: users, tx: tx, log: log}
}

func limitFor(limits plan.Limits, res Resource) int {
	switch res {
	case ResourceDrivers:
		return limits.MaxDrivers
	case ResourceVehicles:
		return limits.MaxVehicles
	case ResourcePlatforms:
		return limits.MaxPlatforms
	case ResourceExpenseTypes:
		return limits.MaxExpenseTypes
	case ResourcePaymentMethods:
		return limits.MaxPaymentMethods
	case ResourceBudgets:
		return limits.MaxBudgets
	case ResourceGoals:
		return limits.MaxGoals
	}
	return 0
}

func countFor(ctx context.Context, st storage.Stores, userID string, res Resource) (int, error) {
	switch res {
	case ResourceDrivers:
		return st.Fleet.CountDrivers(ctx, userID)
	case ResourceVehicles:
		return st.Fleet.CountVehicles(ctx, userID)
	case ResourcePlatforms:
		return st.Catalog.CountPlatforms(ctx, userID)
	case ResourceExpenseTypes:
		return st.Catalog.CountExpenseTypes(ctx, userID)
	case ResourcePaymentMethods:
		return st.Catalog.CountPaymentMethods(ctx, userID)
	case ResourceBudgets:
		return st.Planning.CountBudgets(ctx, userID)
	case ResourceGoals:
		return st.Planning.CountGoals(ctx, userID)
	}
	return 0, fmt.Errorf("unknown resource %q", res)
}

func exceededMessage(tier plan.Tier, res Resource, max int) string {
	noun := resourceNouns[res]
	plural := noun + "s"
	if max == 1 {
		plural = noun
	}
	return fmt.Sprintf("Your %s plan allows up to %d %s. Upgrade to add more.", tier, max, plural)
}

// CheckCreate returns a LimitExceeded error when creating one more res would
// push the user past their plan's cap. It counts through st so callers inside
// a transaction see their own uncommitted rows.
func (s *Service) CheckCreate(ctx context.Context, st storage.Stores, u user.User, res Resource) error {
	return s.CheckCreateBatch(ctx, st, u, res, 1)
}

// CheckCreateBatch is CheckCreate for n rows at once: it compares the
// existing count plus the whole batch against the cap, so an onboarding
// bundle either fits entirely or is rejected before any row lands.
func (s *Service) CheckCreateBatch(ctx context.Context, st storage.Stores, u user.User, res Resource, n int) error {
	if n <= 0 {
		return nil
	}
	limits := plan.LimitsFor(u.Tier)
	max := limitFor(limits, res)
	if plan.IsUnlimited(max) {
		return nil
	}

	count, err := countFor(ctx, st, u.ID, res)
	if err != nil {
		return err
	}
	if count+n > max {
		metrics.RecordLimitRejection(string(res), string(u.Tier))
		s.log.WithField("user_id", u.ID).
			WithField("resource", string(res)).
			WithField("count", count).
			WithField("limit", max).
			Info("creation blocked by plan limit")
		return apperrors.LimitExceeded(exceededMessage(u.Tier, res, max))
	}
	return nil
}

// ResourceUsage pairs a live count with its plan cap for one resource.
type ResourceUsage struct {
	Resource  Resource
	Used      int
	Limit     int
	Unlimited bool
}

// Summary reports every resource's usage against the user's plan. Meant for
// the account screen, not for gating writes.
func (s *Service) Summary(ctx context.Context, st storage.Stores, u user.User) ([]ResourceUsage, error) {
	limits := plan.LimitsFor(u.Tier)
	resources := []Resource{
		ResourceDrivers, ResourceVehicles, ResourcePlatforms,
		ResourceExpenseTypes, ResourcePaymentMethods,
		ResourceBudgets, ResourceGoals,
	}

	result := make([]ResourceUsage, 0, len(resources))
	for _, res := range resources {
		count, err := countFor(ctx, st, u.ID, res)
		if err != nil {
			return nil, err
		}
		max := limitFor(limits, res)
		result = append(result, ResourceUsage{
			Resource:  res,
			Used:      count,
			Limit:     max,
			Unlimited: plan.IsUnlimited(max),
		})
	}
	return result, nil
}

// periodStart returns the first instant of now's calendar month in UTC.
func periodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EffectiveExportCount returns the user's export count for the current
// calendar month, treating a counter from an earlier month as zero.
func EffectiveExportCount(u user.User, now time.Time) int {
	if u.ExportCountResetAt.Before(periodStart(now)) {
		return 0
	}
	return u.MonthlyExportCount
}

// ConsumeExport atomically checks the monthly export quota and increments the
// counter, resetting it first when the calendar month has rolled over. The
// read, check, and write share one transaction so concurrent exports cannot
// both pass on the same remaining slot.
func (s *Service) ConsumeExport(ctx context.Context, userID string) (user.User, error) {
	var updated user.User
	err := s.tx.InTx(ctx, func(st storage.Stores) error {
		u, err := st.Users.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		limits := plan.LimitsFor(u.Tier)
		if !limits.CSVExport {
			return apperrors.LimitExceeded(fmt.Sprintf("Your %s plan does not include CSV export. Upgrade to export your data.", u.Tier))
		}

		now := time.Now().UTC()
		count := EffectiveExportCount(u, now)
		if !plan.IsUnlimited(limits.MaxMonthlyExports) && count >= limits.MaxMonthlyExports {
			metrics.RecordLimitRejection("exports", string(u.Tier))
			return apperrors.LimitExceeded(fmt.Sprintf("Your %s plan allows up to %d exports per month. Upgrade for more.", u.Tier, limits.MaxMonthlyExports))
		}

		start := periodStart(now)
		if err := st.Users.UpdateExportCounter(ctx, userID, count+1, start); err != nil {
			return err
		}
		u.MonthlyExportCount = count + 1
		u.ExportCountResetAt = start
		updated = u
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return updated, nil
}
