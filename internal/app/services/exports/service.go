// Package exports produces CSV downloads of a user's ledger, gated by the
// plan's export capability and monthly quota.
package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gigledger/gigledger/internal/app/metrics"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Export is a generated download.
type Export struct {
	Filename string
	Data     []byte
}

// Service builds ledger exports.
type Service struct {
	ledger storage.LedgerStore
	limits *limits.Service
	log    *logger.Logger
}

// New constructs an exports service.
func New(ledger storage.LedgerStore, lim *limits.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("exports")
	}
	return &Service{ledger: ledger, limits: lim, log: log}
}

// CSV exports the user's entries within [from, to]. The quota is consumed
// before any data is read; a blocked export consumes nothing.
func (s *Service) CSV(ctx context.Context, userID string, from, to time.Time) (Export, error) {
	u, err := s.limits.ConsumeExport(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindLimitExceeded) {
			metrics.RecordExportRun("rejected")
		} else {
			metrics.RecordExportRun("failed")
		}
		return Export{}, err
	}

	revenues, err := s.ledger.ListRevenues(ctx, userID, from, to)
	if err != nil {
		metrics.RecordExportRun("failed")
		return Export{}, err
	}
	expenses, err := s.ledger.ListExpenses(ctx, userID, from, to)
	if err != nil {
		metrics.RecordExportRun("failed")
		return Export{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"type", "occurred_at", "amount", "description", "driver_id", "vehicle_id", "category_id", "payment_method_id"})
	for _, rev := range revenues {
		_ = w.Write([]string{
			"revenue",
			rev.OccurredAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(rev.Amount, 'f', 2, 64),
			rev.Description,
			rev.DriverID,
			rev.VehicleID,
			rev.PlatformID,
			rev.PaymentMethodID,
		})
	}
	for _, exp := range expenses {
		_ = w.Write([]string{
			"expense",
			exp.OccurredAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(exp.Amount, 'f', 2, 64),
			exp.Description,
			exp.DriverID,
			exp.VehicleID,
			exp.ExpenseTypeID,
			exp.PaymentMethodID,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		metrics.RecordExportRun("failed")
		return Export{}, err
	}

	metrics.RecordExportRun("completed")
	s.log.WithField("user_id", userID).
		WithField("entries", len(revenues)+len(expenses)).
		WithField("exports_this_month", u.MonthlyExportCount).
		Info("ledger exported")

	return Export{
		Filename: fmt.Sprintf("gigledger-%s.csv", time.Now().UTC().Format("2006-01-02")),
		Data:     buf.Bytes(),
	}, nil
}
