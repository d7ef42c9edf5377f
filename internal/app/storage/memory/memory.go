package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/domain/planning"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu             sync.RWMutex
	txMu           sync.Mutex
	nextID         int64
	users          map[string]user.User
	usersByEmail   map[string]string
	preferences    map[string]user.Preferences
	drivers        map[string]fleet.Driver
	vehicles       map[string]fleet.Vehicle
	platforms      map[string]catalog.Platform
	expenseTypes   map[string]catalog.ExpenseType
	paymentMethods map[string]catalog.PaymentMethod
	revenues       map[string]ledger.Revenue
	expenses       map[string]ledger.Expense
	budgets        map[string]planning.Budget
	goals          map[string]planning.Goal
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.FleetStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.PlanningStore = (*Store)(nil)
var _ storage.TxRunner = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:         1,
		users:          make(map[string]user.User),
		usersByEmail:   make(map[string]string),
		preferences:    make(map[string]user.Preferences),
		drivers:        make(map[string]fleet.Driver),
		vehicles:       make(map[string]fleet.Vehicle),
		platforms:      make(map[string]catalog.Platform),
		expenseTypes:   make(map[string]catalog.ExpenseType),
		paymentMethods: make(map[string]catalog.PaymentMethod),
		revenues:       make(map[string]ledger.Revenue),
		expenses:       make(map[string]ledger.Expense),
		budgets:        make(map[string]planning.Budget),
		goals:          make(map[string]planning.Goal),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// Stores returns the store bound to every interface it implements.
func (s *Store) Stores() storage.Stores {
	return storage.Stores{Users: s, Fleet: s, Catalog: s, Ledger: s, Planning: s}
}

// InTx snapshots the full state, runs fn, and restores the snapshot when fn
// fails. Transactions serialize against each other via txMu, so a rollback
// can only discard its own writes. Writes made outside any transaction while
// one is open are still lost if that transaction rolls back; callers mutate
// this store through transactions or from a single goroutine, which is
// acceptable for the test and local-development workloads it targets.
func (s *Store) InTx(_ context.Context, fn func(storage.Stores) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(s.Stores()); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	nextID         int64
	users          map[string]user.User
	usersByEmail   map[string]string
	preferences    map[string]user.Preferences
	drivers        map[string]fleet.Driver
	vehicles       map[string]fleet.Vehicle
	platforms      map[string]catalog.Platform
	expenseTypes   map[string]catalog.ExpenseType
	paymentMethods map[string]catalog.PaymentMethod
	revenues       map[string]ledger.Revenue
	expenses       map[string]ledger.Expense
	budgets        map[string]planning.Budget
	goals          map[string]planning.Goal
}

func (s *Store) snapshotLocked() snapshot {
	return snapshot{
		nextID:         s.nextID,
		users:          cloneMap(s.users),
		usersByEmail:   cloneMap(s.usersByEmail),
		preferences:    cloneMap(s.preferences),
		drivers:        cloneMap(s.drivers),
		vehicles:       cloneMap(s.vehicles),
		platforms:      cloneMap(s.platforms),
		expenseTypes:   cloneMap(s.expenseTypes),
		paymentMethods: cloneMap(s.paymentMethods),
		revenues:       cloneMap(s.revenues),
		expenses:       cloneMap(s.expenses),
		budgets:        cloneMap(s.budgets),
		goals:          cloneMap(s.goals),
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.nextID = snap.nextID
	s.users = snap.users
	s.usersByEmail = snap.usersByEmail
	s.preferences = snap.preferences
	s.drivers = snap.drivers
	s.vehicles = snap.vehicles
	s.platforms = snap.platforms
	s.expenseTypes = snap.expenseTypes
	s.paymentMethods = snap.paymentMethods
	s.revenues = snap.revenues
	s.expenses = snap.expenses
	s.budgets = snap.budgets
	s.goals = snap.goals
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email != "" {
		if _, exists := s.usersByEmail[email]; exists {
			return user.User{}, fmt.Errorf("email %s already registered", email)
		}
	}

	now := time.Now().UTC()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	if email != "" {
		s.usersByEmail[email] = u.ID
	}
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}

	u.Email = original.Email
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) GetPreferences(_ context.Context, userID string) (user.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs, ok := s.preferences[userID]
	if !ok {
		return user.Preferences{}, storage.ErrNotFound
	}
	return prefs, nil
}

func (s *Store) UpsertPreferences(_ context.Context, prefs user.Preferences) (user.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.preferences[prefs.UserID]; ok {
		prefs.CreatedAt = existing.CreatedAt
	} else {
		prefs.CreatedAt = now
	}
	prefs.UpdatedAt = now
	s.preferences[prefs.UserID] = prefs
	return prefs, nil
}

func (s *Store) UpdateExportCounter(_ context.Context, userID string, count int, resetAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.MonthlyExportCount = count
	u.ExportCountResetAt = resetAt.UTC()
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

// FleetStore implementation ---------------------------------------------------

func (s *Store) CreateDriver(_ context.Context, d fleet.Driver) (fleet.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	s.drivers[d.ID] = d
	return d, nil
}

func (s *Store) GetDriver(_ context.Context, id string) (fleet.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drivers[id]
	if !ok {
		return fleet.Driver{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDrivers(_ context.Context, userID string) ([]fleet.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []fleet.Driver
	for _, d := range s.drivers {
		if d.UserID == userID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return olderOrSmaller(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID) })
	return result, nil
}

func (s *Store) CountDrivers(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, d := range s.drivers {
		if d.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteDriver(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drivers[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.drivers, id)
	return nil
}

func (s *Store) CreateVehicle(_ context.Context, v fleet.Vehicle) (fleet.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	s.vehicles[v.ID] = v
	return v, nil
}

func (s *Store) GetVehicle(_ context.Context, id string) (fleet.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[id]
	if !ok {
		return fleet.Vehicle{}, storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) ListVehicles(_ context.Context, userID string) ([]fleet.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []fleet.Vehicle
	for _, v := range s.vehicles {
		if v.UserID == userID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return olderOrSmaller(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID) })
	return result, nil
}

func (s *Store) CountVehicles(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, v := range s.vehicles {
		if v.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteVehicle(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.vehicles, id)
	return nil
}

// CatalogStore implementation -------------------------------------------------

func (s *Store) CreatePlatform(_ context.Context, p catalog.Platform) (catalog.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.platforms[p.ID] = p
	return p, nil
}

func (s *Store) GetPlatform(_ context.Context, id string) (catalog.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.platforms[id]
	if !ok {
		return catalog.Platform{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPlatforms(_ context.Context, userID string) ([]catalog.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.Platform
	for _, p := range s.platforms {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return olderOrSmaller(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID) })
	return result, nil
}

func (s *Store) CountPlatforms(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.platforms {
		if p.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeletePlatform(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.platforms[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.platforms, id)
	return nil
}

func (s *Store) CreateExpenseType(_ context.Context, et catalog.ExpenseType) (catalog.ExpenseType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if et.ID == "" {
		et.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	et.CreatedAt = now
	et.UpdatedAt = now
	s.expenseTypes[et.ID] = et
	return et, nil
}

func (s *Store) GetExpenseType(_ context.Context, id string) (catalog.ExpenseType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	et, ok := s.expenseTypes[id]
	if !ok {
		return catalog.ExpenseType{}, storage.ErrNotFound
	}
	return et, nil
}

func (s *Store) ListExpenseTypes(_ context.Context, userID string) ([]catalog.ExpenseType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.ExpenseType
	for _, et := range s.expenseTypes {
		if et.UserID == userID {
			result = append(result, et)
		}
	}
	sort.Slice(result, func(i, j int) bool { return olderOrSmaller(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID) })
	return result, nil
}

func (s *Store) CountExpenseTypes(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, et := range s.expenseTypes {
		if et.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteExpenseType(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenseTypes[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.expenseTypes, id)
	return nil
}

func (s *Store) CreatePaymentMethod(_ context.Context, pm catalog.PaymentMethod) (catalog.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pm.ID == "" {
		pm.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	pm.CreatedAt = now
	pm.UpdatedAt = now
	s.paymentMethods[pm.ID] = pm
	return pm, nil
}

func (s *Store) GetPaymentMethod(_ context.Context, id string) (catalog.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pm, ok := s.paymentMethods[id]
	if !ok {
		return catalog.PaymentMethod{}, storage.ErrNotFound
	}
	return pm, nil
}

func (s *Store) ListPaymentMethods(_ context.Context, userID string) ([]catalog.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.PaymentMethod
	for _, pm := range s.paymentMethods {
		if pm.UserID == userID {
			result = append(result, pm)
		}
	}
	sort.Slice(result, func(i, j int) bool { return olderOrSmaller(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID) })
	return result, nil
}

func (s *Store) CountPaymentMethods(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, pm := range s.paymentMethods {
		if pm.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeletePaymentMethod(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paymentMethods[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.paymentMethods, id)
	return nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateRevenue(_ context.Context, rev ledger.Revenue) (ledger.Revenue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rev.ID == "" {
		rev.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	rev.CreatedAt = now
	if rev.OccurredAt.IsZero() {
		rev.OccurredAt = now
	}
	s.revenues[rev.ID] = rev
	return rev, nil
}

func (s *Store) ListRevenues(_ context.Context, userID string, from, to time.Time) ([]ledger.Revenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Revenue
	for _, rev := range s.revenues {
		if rev.UserID == userID && inWindow(rev.OccurredAt, from, to) {
			result = append(result, rev)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OccurredAt.After(result[j].OccurredAt) })
	return result, nil
}

func (s *Store) CreateExpense(_ context.Context, exp ledger.Expense) (ledger.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp.ID == "" {
		exp.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	exp.CreatedAt = now
	if exp.OccurredAt.IsZero() {
		exp.OccurredAt = now
	}
	s.expenses[exp.ID] = exp
	return exp, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string, from, to time.Time) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Expense
	for _, exp := range s.expenses {
		if exp.UserID == userID && inWindow(exp.OccurredAt, from, to) {
			result = append(result, exp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OccurredAt.After(result[j].OccurredAt) })
	return result, nil
}

func (s *Store) DriverFrequency(_ context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rev := range s.revenues {
		if rev.UserID == userID && !rev.OccurredAt.Before(since) && rev.DriverID != "" {
			counts[rev.DriverID]++
		}
	}
	for _, exp := range s.expenses {
		if exp.UserID == userID && !exp.OccurredAt.Before(since) && exp.DriverID != "" {
			counts[exp.DriverID]++
		}
	}
	return sortedCounts(counts), nil
}

func (s *Store) VehicleFrequency(_ context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rev := range s.revenues {
		if rev.UserID == userID && !rev.OccurredAt.Before(since) && rev.VehicleID != "" {
			counts[rev.VehicleID]++
		}
	}
	for _, exp := range s.expenses {
		if exp.UserID == userID && !exp.OccurredAt.Before(since) && exp.VehicleID != "" {
			counts[exp.VehicleID]++
		}
	}
	return sortedCounts(counts), nil
}

func (s *Store) PlatformFrequency(_ context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rev := range s.revenues {
		if rev.UserID == userID && !rev.OccurredAt.Before(since) && rev.PlatformID != "" {
			counts[rev.PlatformID]++
		}
	}
	return sortedCounts(counts), nil
}

func (s *Store) PaymentMethodFrequency(_ context.Context, userID string, since time.Time) ([]ledger.FrequencyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rev := range s.revenues {
		if rev.UserID == userID && !rev.OccurredAt.Before(since) && rev.PaymentMethodID != "" {
			counts[rev.PaymentMethodID]++
		}
	}
	for _, exp := range s.expenses {
		if exp.UserID == userID && !exp.OccurredAt.Before(since) && exp.PaymentMethodID != "" {
			counts[exp.PaymentMethodID]++
		}
	}
	return sortedCounts(counts), nil
}

// PlanningStore implementation ------------------------------------------------

func (s *Store) CreateBudget(_ context.Context, b planning.Budget) (planning.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (planning.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[id]
	if !ok {
		return planning.Budget{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]planning.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []planning.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return olderOrSmaller(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID) })
	return result, nil
}

func (s *Store) CountBudgets(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.budgets {
		if b.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) CreateGoal(_ context.Context, g planning.Goal) (planning.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) GetGoal(_ context.Context, id string) (planning.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.goals[id]
	if !ok {
		return planning.Goal{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]planning.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []planning.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return olderOrSmaller(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID) })
	return result, nil
}

func (s *Store) CountGoals(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, g := range s.goals {
		if g.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.goals[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

// Helpers ----------------------------------------------------------------------

// olderOrSmaller keeps list order stable when CreatedAt timestamps collide,
// which happens constantly in tests.
func olderOrSmaller(t1 time.Time, id1 string, t2 time.Time, id2 string) bool {
	if t1.Equal(t2) {
		if len(id1) != len(id2) {
			return len(id1) < len(id2)
		}
		return id1 < id2
	}
	return t1.Before(t2)
}

func inWindow(at, from, to time.Time) bool {
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && at.After(to) {
		return false
	}
	return true
}

func sortedCounts(counts map[string]int) []ledger.FrequencyCount {
	result := make([]ledger.FrequencyCount, 0, len(counts))
	for id, count := range counts {
		result = append(result, ledger.FrequencyCount{ID: id, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count == result[j].Count {
			return result[i].ID < result[j].ID
		}
		return result[i].Count > result[j].Count
	})
	return result
}
