package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/planning"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/storage"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every store method
// works identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
	q  querier
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.FleetStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.PlanningStore = (*Store)(nil)
var _ storage.TxRunner = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Stores returns the store bound to every interface it implements.
func (s *Store) Stores() storage.Stores {
	return storage.Stores{Users: s, Fleet: s, Catalog: s, Ledger: s, Planning: s}
}

// InTx runs fn against a transaction-bound copy of the store. Any error from
// fn rolls the transaction back.
func (s *Store) InTx(ctx context.Context, fn func(storage.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore.Stores()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_users (id, email, name, plan_tier, onboarded_at, monthly_export_count, export_count_reset_at, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.Name, string(u.Tier), toNullTime(u.OnboardedAt), u.MonthlyExportCount, toNullTime(u.ExportCountResetAt), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE app_users
		SET name = $2, plan_tier = $3, onboarded_at = $4, monthly_export_count = $5, export_count_reset_at = $6, updated_at = $7
		WHERE id = $1
	`, u.ID, u.Name, string(u.Tier), toNullTime(u.OnboardedAt), u.MonthlyExportCount, toNullTime(u.ExportCountResetAt), u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

const userColumns = `id, email, name, plan_tier, onboarded_at, monthly_export_count, export_count_reset_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var (
		u           user.User
		tier        string
		onboardedAt sql.NullTime
		resetAt     sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &tier, &onboardedAt, &u.MonthlyExportCount, &resetAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	u.Tier = plan.Tier(tier)
	if onboardedAt.Valid {
		u.OnboardedAt = onboardedAt.Time.UTC()
	}
	if resetAt.Valid {
		u.ExportCountResetAt = resetAt.Time.UTC()
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM app_users
		WHERE id = $1
	`, id)
	u, err := scanUser(row)
	if err != nil {
		return user.User{}, mapNotFound(err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM app_users
		WHERE email = lower($1)
	`, email)
	u, err := scanUser(row)
	if err != nil {
		return user.User{}, mapNotFound(err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM app_users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) GetPreferences(ctx context.Context, userID string) (user.Preferences, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT user_id, currency, locale, week_start, default_driver_id, default_vehicle_id, created_at, updated_at
		FROM app_user_preferences
		WHERE user_id = $1
	`, userID)

	var prefs user.Preferences
	if err := row.Scan(&prefs.UserID, &prefs.Currency, &prefs.Locale, &prefs.WeekStart, &prefs.DefaultDriverID, &prefs.DefaultVehicleID, &prefs.CreatedAt, &prefs.UpdatedAt); err != nil {
		return user.Preferences{}, mapNotFound(err)
	}
	return prefs, nil
}

func (s *Store) UpsertPreferences(ctx context.Context, prefs user.Preferences) (user.Preferences, error) {
	now := time.Now().UTC()
	prefs.CreatedAt = now
	prefs.UpdatedAt = now

	row := s.q.QueryRowContext(ctx, `
		INSERT INTO app_user_preferences (user_id, currency, locale, week_start, default_driver_id, default_vehicle_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET currency = $2, locale = $3, week_start = $4, default_driver_id = $5, default_vehicle_id = $6, updated_at = $8
		RETURNING created_at
	`, prefs.UserID, prefs.Currency, prefs.Locale, prefs.WeekStart, prefs.DefaultDriverID, prefs.DefaultVehicleID, prefs.CreatedAt, prefs.UpdatedAt)
	if err := row.Scan(&prefs.CreatedAt); err != nil {
		return user.Preferences{}, err
	}
	return prefs, nil
}

func (s *Store) UpdateExportCounter(ctx context.Context, userID string, count int, resetAt time.Time) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE app_users
		SET monthly_export_count = $2, export_count_reset_at = $3, updated_at = $4
		WHERE id = $1
	`, userID, count, toNullTime(resetAt), time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- FleetStore -------------------------------------------------------------

func (s *Store) CreateDriver(ctx context.Context, d fleet.Driver) (fleet.Driver, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_drivers (id, user_id, name, is_self, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.UserID, d.Name, d.IsSelf, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fleet.Driver{}, err
	}
	return d, nil
}

func (s *Store) GetDriver(ctx context.Context, id string) (fleet.Driver, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, is_self, created_at, updated_at
		FROM app_drivers
		WHERE id = $1
	`, id)

	var d fleet.Driver
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.IsSelf, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return fleet.Driver{}, mapNotFound(err)
	}
	return d, nil
}

func (s *Store) ListDrivers(ctx context.Context, userID string) ([]fleet.Driver, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, name, is_self, created_at, updated_at
		FROM app_drivers
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Driver
	for rows.Next() {
		var d fleet.Driver
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.IsSelf, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *Store) CountDrivers(ctx context.Context, userID string) (int, error) {
	return s.countByUser(ctx, "app_drivers", userID)
}

func (s *Store) DeleteDriver(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "app_drivers", id)
}

func (s *Store) CreateVehicle(ctx context.Context, v fleet.Vehicle) (fleet.Vehicle, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_vehicles (id, user_id, name, make, model, year, is_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, v.ID, v.UserID, v.Name, v.Make, v.Model, v.Year, v.IsPrimary, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fleet.Vehicle{}, err
	}
	return v, nil
}

func (s *Store) GetVehicle(ctx context.Context, id string) (fleet.Vehicle, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, make, model, year, is_primary, created_at, updated_at
		FROM app_vehicles
		WHERE id = $1
	`, id)

	var v fleet.Vehicle
	if err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.Make, &v.Model, &v.Year, &v.IsPrimary, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return fleet.Vehicle{}, mapNotFound(err)
	}
	return v, nil
}

func (s *Store) ListVehicles(ctx context.Context, userID string) ([]fleet.Vehicle, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, name, make, model, year, is_primary, created_at, updated_at
		FROM app_vehicles
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fleet.Vehicle
	for rows.Next() {
		var v fleet.Vehicle
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.Make, &v.Model, &v.Year, &v.IsPrimary, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (s *Store) CountVehicles(ctx context.Context, userID string) (int, error) {
	return s.countByUser(ctx, "app_vehicles", userID)
}

func (s *Store) DeleteVehicle(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "app_vehicles", id)
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreatePlatform(ctx context.Context, p catalog.Platform) (catalog.Platform, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_platforms (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.UserID, p.Name, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return catalog.Platform{}, err
	}
	return p, nil
}

func (s *Store) GetPlatform(ctx context.Context, id string) (catalog.Platform, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM app_platforms
		WHERE id = $1
	`, id)

	var p catalog.Platform
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return catalog.Platform{}, mapNotFound(err)
	}
	return p, nil
}

func (s *Store) ListPlatforms(ctx context.Context, userID string) ([]catalog.Platform, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM app_platforms
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Platform
	for rows.Next() {
		var p catalog.Platform
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) CountPlatforms(ctx context.Context, userID string) (int, error) {
	return s.countByUser(ctx, "app_platforms", userID)
}

func (s *Store) DeletePlatform(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "app_platforms", id)
}

func (s *Store) CreateExpenseType(ctx context.Context, et catalog.ExpenseType) (catalog.ExpenseType, error) {
	if et.ID == "" {
		et.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	et.CreatedAt = now
	et.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_expense_types (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, et.ID, et.UserID, et.Name, et.CreatedAt, et.UpdatedAt)
	if err != nil {
		return catalog.ExpenseType{}, err
	}
	return et, nil
}

func (s *Store) GetExpenseType(ctx context.Context, id string) (catalog.ExpenseType, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM app_expense_types
		WHERE id = $1
	`, id)

	var et catalog.ExpenseType
	if err := row.Scan(&et.ID, &et.UserID, &et.Name, &et.CreatedAt, &et.UpdatedAt); err != nil {
		return catalog.ExpenseType{}, mapNotFound(err)
	}
	return et, nil
}

func (s *Store) ListExpenseTypes(ctx context.Context, userID string) ([]catalog.ExpenseType, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM app_expense_types
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.ExpenseType
	for rows.Next() {
		var et catalog.ExpenseType
		if err := rows.Scan(&et.ID, &et.UserID, &et.Name, &et.CreatedAt, &et.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, et)
	}
	return result, rows.Err()
}

func (s *Store) CountExpenseTypes(ctx context.Context, userID string) (int, error) {
	return s.countByUser(ctx, "app_expense_types", userID)
}

func (s *Store) DeleteExpenseType(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "app_expense_types", id)
}

func (s *Store) CreatePaymentMethod(ctx context.Context, pm catalog.PaymentMethod) (catalog.PaymentMethod, error) {
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pm.CreatedAt = now
	pm.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_payment_methods (id, user_id, name, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pm.ID, pm.UserID, pm.Name, string(pm.Kind), pm.CreatedAt, pm.UpdatedAt)
	if err != nil {
		return catalog.PaymentMethod{}, err
	}
	return pm, nil
}

func (s *Store) GetPaymentMethod(ctx context.Context, id string) (catalog.PaymentMethod, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, kind, created_at, updated_at
		FROM app_payment_methods
		WHERE id = $1
	`, id)

	var (
		pm   catalog.PaymentMethod
		kind string
	)
	if err := row.Scan(&pm.ID, &pm.UserID, &pm.Name, &kind, &pm.CreatedAt, &pm.UpdatedAt); err != nil {
		return catalog.PaymentMethod{}, mapNotFound(err)
	}
	pm.Kind = catalog.PaymentMethodKind(kind)
	return pm, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context, userID string) ([]catalog.PaymentMethod, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, name, kind, created_at, updated_at
		FROM app_payment_methods
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.PaymentMethod
	for rows.Next() {
		var (
			pm   catalog.PaymentMethod
			kind string
		)
		if err := rows.Scan(&pm.ID, &pm.UserID, &pm.Name, &kind, &pm.CreatedAt, &pm.UpdatedAt); err != nil {
			return nil, err
		}
		pm.Kind = catalog.PaymentMethodKind(kind)
		result = append(result, pm)
	}
	return result, rows.Err()
}

func (s *Store) CountPaymentMethods(ctx context.Context, userID string) (int, error) {
	return s.countByUser(ctx, "app_payment_methods", userID)
}

func (s *Store) DeletePaymentMethod(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "app_payment_methods", id)
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) CreateRevenue(ctx context.Context, rev ledger.Revenue) (ledger.Revenue, error) {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rev.CreatedAt = now
	if rev.OccurredAt.IsZero() {
		rev.OccurredAt = now
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_revenues (id, user_id, driver_id, vehicle_id, platform_id, payment_method_id, amount, description, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rev.ID, rev.UserID, rev.DriverID, rev.VehicleID, rev.PlatformID, rev.PaymentMethodID, rev.Amount, rev.Description, rev.OccurredAt, rev.CreatedAt)
	if err != nil {
		return ledger.Revenue{}, err
	}
	return rev, nil
}

func (s *Store) ListRevenues(ctx context.Context, userID string, from, to time.Time) ([]ledger.Revenue, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, driver_id, vehicle_id, platform_id, payment_method_id, amount, description, occurred_at, created_at
		FROM app_revenues
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		  AND ($3::timestamptz IS NULL OR occurred_at <= $3)
		ORDER BY occurred_at DESC
	`, userID, toNullTime(from), toNullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Revenue
	for rows.Next() {
		var rev ledger.Revenue
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.DriverID, &rev.VehicleID, &rev.PlatformID, &rev.PaymentMethodID, &rev.Amount, &rev.Description, &rev.OccurredAt, &rev.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rev)
	}
	return result, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, exp ledger.Expense) (ledger.Expense, error) {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exp.CreatedAt = now
	if exp.OccurredAt.IsZero() {
		exp.OccurredAt = now
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_expenses (id, user_id, driver_id, vehicle_id, expense_type_id, payment_method_id, amount, description, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, exp.ID, exp.UserID, exp.DriverID, exp.VehicleID, exp.ExpenseTypeID, exp.PaymentMethodID, exp.Amount, exp.Description, exp.OccurredAt, exp.CreatedAt)
	if err != nil {
		return ledger.Expense{}, err
	}
	return exp, nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string, from, to time.Time) ([]ledger.Expense, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, driver_id, vehicle_id, expense_type_id, payment_method_id, amount, description, occurred_at, created_at
		FROM app_expenses
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		  AND ($3::timestamptz IS NULL OR occurred_at <= $3)
		ORDER BY occurred_at DESC
	`, userID, toNullTime(from), toNullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Expense
	for rows.Next() {
		var exp ledger.Expense
		if err := rows.Scan(&exp.ID, &exp.UserID, &exp.DriverID, &exp.VehicleID, &exp.ExpenseTypeID, &exp.PaymentMethodID, &exp.Amount, &exp.Description, &exp.OccurredAt, &exp.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, exp)
	}
	return result, rows.Err()
}

func (s *Store) DriverFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	return s.frequency(ctx, `
		SELECT ref_id, COUNT(*) AS n FROM (
			SELECT driver_id AS ref_id FROM app_revenues WHERE user_id = $1 AND occurred_at >= $2 AND driver_id <> ''
			UNION ALL
			SELECT driver_id FROM app_expenses WHERE user_id = $1 AND occurred_at >= $2 AND driver_id <> ''
		) refs
		GROUP BY ref_id
		ORDER BY n DESC, ref_id
	`, userID, since)
}

func (s *Store) VehicleFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	return s.frequency(ctx, `
		SELECT ref_id, COUNT(*) AS n FROM (
			SELECT vehicle_id AS ref_id FROM app_revenues WHERE user_id = $1 AND occurred_at >= $2 AND vehicle_id <> ''
			UNION ALL
			SELECT vehicle_id FROM app_expenses WHERE user_id = $1 AND occurred_at >= $2 AND vehicle_id <> ''
		) refs
		GROUP BY ref_id
		ORDER BY n DESC, ref_id
	`, userID, since)
}

func (s *Store) PlatformFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	return s.frequency(ctx, `
		SELECT platform_id AS ref_id, COUNT(*) AS n
		FROM app_revenues
		WHERE user_id = $1 AND occurred_at >= $2 AND platform_id <> ''
		GROUP BY platform_id
		ORDER BY n DESC, ref_id
	`, userID, since)
}

func (s *Store) PaymentMethodFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	return s.frequency(ctx, `
		SELECT ref_id, COUNT(*) AS n FROM (
			SELECT payment_method_id AS ref_id FROM app_revenues WHERE user_id = $1 AND occurred_at >= $2 AND payment_method_id <> ''
			UNION ALL
			SELECT payment_method_id FROM app_expenses WHERE user_id = $1 AND occurred_at >= $2 AND payment_method_id <> ''
		) refs
		GROUP BY ref_id
		ORDER BY n DESC, ref_id
	`, userID, since)
}

func (s *Store) frequency(ctx context.Context, query, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	rows, err := s.q.QueryContext(ctx, query, userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.FrequencyCount
	for rows.Next() {
		var fc ledger.FrequencyCount
		if err := rows.Scan(&fc.ID, &fc.Count); err != nil {
			return nil, err
		}
		result = append(result, fc)
	}
	return result, rows.Err()
}

// --- PlanningStore ----------------------------------------------------------

func (s *Store) CreateBudget(ctx context.Context, b planning.Budget) (planning.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_budgets (id, user_id, name, amount, period, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.UserID, b.Name, b.Amount, b.Period, b.IsActive, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return planning.Budget{}, err
	}
	return b, nil
}

func (s *Store) GetBudget(ctx context.Context, id string) (planning.Budget, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, amount, period, is_active, created_at, updated_at
		FROM app_budgets
		WHERE id = $1
	`, id)

	var b planning.Budget
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Period, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return planning.Budget{}, mapNotFound(err)
	}
	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context, userID string) ([]planning.Budget, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, name, amount, period, is_active, created_at, updated_at
		FROM app_budgets
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []planning.Budget
	for rows.Next() {
		var b planning.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Period, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (s *Store) CountBudgets(ctx context.Context, userID string) (int, error) {
	return s.countByUser(ctx, "app_budgets", userID)
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "app_budgets", id)
}

func (s *Store) CreateGoal(ctx context.Context, g planning.Goal) (planning.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_goals (id, user_id, name, target, deadline, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.UserID, g.Name, g.Target, toNullTime(g.Deadline), g.IsActive, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return planning.Goal{}, err
	}
	return g, nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (planning.Goal, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, target, deadline, is_active, created_at, updated_at
		FROM app_goals
		WHERE id = $1
	`, id)

	var (
		g        planning.Goal
		deadline sql.NullTime
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Target, &deadline, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return planning.Goal{}, mapNotFound(err)
	}
	if deadline.Valid {
		g.Deadline = deadline.Time.UTC()
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]planning.Goal, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, name, target, deadline, is_active, created_at, updated_at
		FROM app_goals
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []planning.Goal
	for rows.Next() {
		var (
			g        planning.Goal
			deadline sql.NullTime
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Target, &deadline, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if deadline.Valid {
			g.Deadline = deadline.Time.UTC()
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) CountGoals(ctx context.Context, userID string) (int, error) {
	return s.countByUser(ctx, "app_goals", userID)
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "app_goals", id)
}

// --- shared helpers ----------------------------------------------------------

// countByUser and deleteByID interpolate the table name; every caller passes
// a compile-time constant, never user input.

func (s *Store) countByUser(ctx context.Context, table, userID string) (int, error) {
	var count int
	row := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, userID)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
