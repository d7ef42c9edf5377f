package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/domain/planning"
	"github.com/gigledger/gigledger/internal/app/domain/user"
)

// ErrNotFound is returned by every store when a row does not exist. Callers
// translate it into the user-facing taxonomy.
var ErrNotFound = errors.New("record not found")

// UserStore persists users, their preferences, and the monthly export
// counter.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)

	GetPreferences(ctx context.Context, userID string) (user.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs user.Preferences) (user.Preferences, error)

	UpdateExportCounter(ctx context.Context, userID string, count int, resetAt time.Time) error
}

// FleetStore persists drivers and vehicles.
type FleetStore interface {
	CreateDriver(ctx context.Context, d fleet.Driver) (fleet.Driver, error)
	GetDriver(ctx context.Context, id string) (fleet.Driver, error)
	ListDrivers(ctx context.Context, userID string) ([]fleet.Driver, error)
	CountDrivers(ctx context.Context, userID string) (int, error)
	DeleteDriver(ctx context.Context, id string) error

	CreateVehicle(ctx context.Context, v fleet.Vehicle) (fleet.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (fleet.Vehicle, error)
	ListVehicles(ctx context.Context, userID string) ([]fleet.Vehicle, error)
	CountVehicles(ctx context.Context, userID string) (int, error)
	DeleteVehicle(ctx context.Context, id string) error
}

// CatalogStore persists platforms, expense types, and payment methods.
type CatalogStore interface {
	CreatePlatform(ctx context.Context, p catalog.Platform) (catalog.Platform, error)
	GetPlatform(ctx context.Context, id string) (catalog.Platform, error)
	ListPlatforms(ctx context.Context, userID string) ([]catalog.Platform, error)
	CountPlatforms(ctx context.Context, userID string) (int, error)
	DeletePlatform(ctx context.Context, id string) error

	CreateExpenseType(ctx context.Context, et catalog.ExpenseType) (catalog.ExpenseType, error)
	GetExpenseType(ctx context.Context, id string) (catalog.ExpenseType, error)
	ListExpenseTypes(ctx context.Context, userID string) ([]catalog.ExpenseType, error)
	CountExpenseTypes(ctx context.Context, userID string) (int, error)
	DeleteExpenseType(ctx context.Context, id string) error

	CreatePaymentMethod(ctx context.Context, pm catalog.PaymentMethod) (catalog.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (catalog.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, userID string) ([]catalog.PaymentMethod, error)
	CountPaymentMethods(ctx context.Context, userID string) (int, error)
	DeletePaymentMethod(ctx context.Context, id string) error
}

// LedgerStore persists revenues and expenses and serves the grouped
// reference counts behind usage-based defaults. Frequency results are
// ordered most frequent first and exclude rows with no reference set.
type LedgerStore interface {
	CreateRevenue(ctx context.Context, rev ledger.Revenue) (ledger.Revenue, error)
	ListRevenues(ctx context.Context, userID string, from, to time.Time) ([]ledger.Revenue, error)
	CreateExpense(ctx context.Context, exp ledger.Expense) (ledger.Expense, error)
	ListExpenses(ctx context.Context, userID string, from, to time.Time) ([]ledger.Expense, error)

	DriverFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error)
	VehicleFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error)
	PlatformFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error)
	PaymentMethodFrequency(ctx context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error)
}

// PlanningStore persists budgets and goals.
type PlanningStore interface {
	CreateBudget(ctx context.Context, b planning.Budget) (planning.Budget, error)
	GetBudget(ctx context.Context, id string) (planning.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]planning.Budget, error)
	CountBudgets(ctx context.Context, userID string) (int, error)
	DeleteBudget(ctx context.Context, id string) error

	CreateGoal(ctx context.Context, g planning.Goal) (planning.Goal, error)
	GetGoal(ctx context.Context, id string) (planning.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]planning.Goal, error)
	CountGoals(ctx context.Context, userID string) (int, error)
	DeleteGoal(ctx context.Context, id string) error
}

// Stores bundles every store interface for transactional work.
type Stores struct {
	Users    UserStore
	Fleet    FleetStore
	Catalog  CatalogStore
	Ledger   LedgerStore
	Planning PlanningStore
}

// TxRunner executes fn against transaction-bound stores. If fn returns an
// error, every write made through the passed stores is rolled back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}
