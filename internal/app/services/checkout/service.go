// Package checkout integrates with the payment provider and keeps the
// short-lived plan selection a user makes before finishing onboarding.
package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gigledger/gigledger/internal/app/cache"
	"github.com/gigledger/gigledger/internal/app/domain/billing"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// stashTTL bounds how long a pre-onboarding plan selection survives.
const stashTTL = time.Hour

// Provider creates checkout sessions with the payment backend.
type Provider interface {
	CreateSession(ctx context.Context, u user.User, sel billing.CheckoutSelection) (billing.CheckoutSession, error)
}

// Service stashes plan selections and initiates checkouts.
type Service struct {
	provider Provider
	cache    cache.Cache
	log      *logger.Logger
}

// New constructs a checkout service. The cache holds stashed selections; a
// nil cache disables stashing.
func New(provider Provider, c cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	return &Service{provider: provider, cache: c, log: log}
}

func stashKey(userID string) string { return "checkout:stash:" + userID }

func stashTag(userID string) string { return "checkout:" + userID }

// Stash records a plan selection made before onboarding completed. The
// selection is read once by TakeStashed and expires on its own otherwise.
func (s *Service) Stash(ctx context.Context, userID string, tier plan.Tier, interval plan.BillingInterval) error {
	if !tier.Valid() || tier == plan.Free {
		return apperrors.Invalid("A paid plan is required for checkout.")
	}
	if interval != plan.Monthly && interval != plan.Yearly {
		return apperrors.Invalid("Unknown billing interval.")
	}
	if s.cache == nil {
		return apperrors.Internal(nil)
	}

	sel := billing.CheckoutSelection{
		UserID:    userID,
		Tier:      tier,
		Interval:  interval,
		StashedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(sel)
	if err != nil {
		return apperrors.Internal(err)
	}
	return s.cache.Set(ctx, stashKey(userID), raw, stashTTL, stashTag(userID))
}

// TakeStashed returns and clears the user's stashed selection, if any.
func (s *Service) TakeStashed(ctx context.Context, userID string) (billing.CheckoutSelection, bool) {
	if s.cache == nil {
		return billing.CheckoutSelection{}, false
	}
	raw, ok, err := s.cache.Get(ctx, stashKey(userID))
	if err != nil || !ok {
		return billing.CheckoutSelection{}, false
	}
	if err := s.cache.InvalidateTags(ctx, stashTag(userID)); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("clearing checkout stash failed")
	}

	var sel billing.CheckoutSelection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return billing.CheckoutSelection{}, false
	}
	return sel, true
}

// Initiate creates a checkout session for the selection.
func (s *Service) Initiate(ctx context.Context, u user.User, sel billing.CheckoutSelection) (billing.CheckoutSession, error) {
	if s.provider == nil {
		return billing.CheckoutSession{}, apperrors.Internal(nil)
	}
	session, err := s.provider.CreateSession(ctx, u, sel)
	if err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Error("checkout session creation failed")
		return billing.CheckoutSession{}, apperrors.Internal(err)
	}
	s.log.WithField("user_id", u.ID).
		WithField("tier", string(sel.Tier)).
		WithField("session_id", session.ID).
		Info("checkout session created")
	return session, nil
}
