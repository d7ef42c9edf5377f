// Package httpapi exposes the REST API. All /me routes operate on the
// authenticated user from the request context.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/gigledger/gigledger/internal/app"
	"github.com/gigledger/gigledger/internal/app/domain/billing"
	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/planning"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/onboarding"
	"github.com/gigledger/gigledger/internal/app/services/users"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/internal/middleware"
	"github.com/gigledger/gigledger/pkg/logger"
)

// sessionTTL is the lifetime of tokens issued at signup.
const sessionTTL = 30 * 24 * time.Hour

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	secret []byte
	log    *logger.Logger
}

// NewHandler returns a mux exposing the REST API. The secret signs session
// tokens issued at signup.
func NewHandler(application *app.Application, secret []byte, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, secret: secret, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthz)
	mux.HandleFunc("/signup", h.signup)
	mux.HandleFunc("/me", h.me)
	mux.HandleFunc("/me/", h.meResources)
	return mux
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeAppError(w, apperrors.Invalid("Malformed request body."))
		return
	}

	u, err := h.app.Users.Register(r.Context(), payload.Email, payload.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	token, err := middleware.IssueToken(h.secret, u.ID, u.Email, sessionTTL)
	if err != nil {
		writeAppError(w, apperrors.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "token": token})
}

// currentUser resolves the authenticated user or fails with Unauthorized.
func (h *handler) currentUser(r *http.Request) (user.User, error) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		return user.User{}, apperrors.Unauthorized("")
	}
	return h.app.Users.Get(r.Context(), userID)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	u, err := h.currentUser(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	usage, err := h.app.Limits.Summary(r.Context(), h.app.Stores, u)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   u,
		"limits": plan.LimitsFor(u.Tier),
		"usage":  usage,
	})
}

func (h *handler) meResources(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/me"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	rest := parts[1:]
	switch parts[0] {
	case "preferences":
		h.preferences(w, r, u)
	case "usage":
		h.usage(w, r, u)
	case "drivers":
		h.drivers(w, r, u, rest)
	case "vehicles":
		h.vehicles(w, r, u, rest)
	case "platforms":
		h.platforms(w, r, u, rest)
	case "expense-types":
		h.expenseTypes(w, r, u, rest)
	case "payment-methods":
		h.paymentMethods(w, r, u, rest)
	case "budgets":
		h.budgets(w, r, u, rest)
	case "goals":
		h.goals(w, r, u, rest)
	case "revenues":
		h.revenues(w, r, u)
	case "expenses":
		h.expenses(w, r, u)
	case "entry-form":
		h.entryForm(w, r, u)
	case "onboarding":
		h.onboarding(w, r, u)
	case "checkout":
		h.checkout(w, r, u)
	case "billing":
		if len(rest) == 1 && rest[0] == "checkout" {
			h.checkout(w, r, u)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case "exports":
		h.exports(w, r, u)
	case "summary":
		h.summary(w, r, u)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) usage(w http.ResponseWriter, r *http.Request, u user.User) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	usage, err := h.app.Limits.Summary(r.Context(), h.app.Stores, u)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (h *handler) preferences(w http.ResponseWriter, r *http.Request, u user.User) {
	switch r.Method {
	case http.MethodGet:
		prefs, err := h.app.Users.Preferences(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)

	case http.MethodPut:
		var payload struct {
			Currency         *string `json:"currency"`
			Locale           *string `json:"locale"`
			WeekStart        *string `json:"week_start"`
			DefaultDriverID  *string `json:"default_driver_id"`
			DefaultVehicleID *string `json:"default_vehicle_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		prefs, err := h.app.Users.UpdatePreferences(r.Context(), u.ID, users.PreferencesUpdate{
			Currency:         payload.Currency,
			Locale:           payload.Locale,
			WeekStart:        payload.WeekStart,
			DefaultDriverID:  payload.DefaultDriverID,
			DefaultVehicleID: payload.DefaultVehicleID,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) drivers(w http.ResponseWriter, r *http.Request, u user.User, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Fleets.DeleteDriver(r.Context(), u.ID, rest[0]); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name   string `json:"name"`
			IsSelf bool   `json:"is_self"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		created, err := h.app.Fleets.CreateDriver(r.Context(), u.ID, fleet.Driver{Name: payload.Name, IsSelf: payload.IsSelf})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		drivers, err := h.app.Fleets.ListDrivers(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, drivers)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) vehicles(w http.ResponseWriter, r *http.Request, u user.User, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Fleets.DeleteVehicle(r.Context(), u.ID, rest[0]); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name      string `json:"name"`
			Make      string `json:"make"`
			Model     string `json:"model"`
			Year      int    `json:"year"`
			IsPrimary bool   `json:"is_primary"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		created, err := h.app.Fleets.CreateVehicle(r.Context(), u.ID, fleet.Vehicle{
			Name:      payload.Name,
			Make:      payload.Make,
			Model:     payload.Model,
			Year:      payload.Year,
			IsPrimary: payload.IsPrimary,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		vehicles, err := h.app.Fleets.ListVehicles(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vehicles)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) platforms(w http.ResponseWriter, r *http.Request, u user.User, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Catalogs.DeletePlatform(r.Context(), u.ID, rest[0]); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		created, err := h.app.Catalogs.CreatePlatform(r.Context(), u.ID, payload.Name)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		platforms, err := h.app.Catalogs.ListPlatforms(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, platforms)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) expenseTypes(w http.ResponseWriter, r *http.Request, u user.User, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Catalogs.DeleteExpenseType(r.Context(), u.ID, rest[0]); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		created, err := h.app.Catalogs.CreateExpenseType(r.Context(), u.ID, payload.Name)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		types, err := h.app.Catalogs.ListExpenseTypes(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) paymentMethods(w http.ResponseWriter, r *http.Request, u user.User, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Catalogs.DeletePaymentMethod(r.Context(), u.ID, rest[0]); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		created, err := h.app.Catalogs.CreatePaymentMethod(r.Context(), u.ID, payload.Name, catalog.PaymentMethodKind(payload.Kind))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		methods, err := h.app.Catalogs.ListPaymentMethods(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, methods)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) budgets(w http.ResponseWriter, r *http.Request, u user.User, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Plans.DeleteBudget(r.Context(), u.ID, rest[0]); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name   string  `json:"name"`
			Amount float64 `json:"amount"`
			Period string  `json:"period"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		created, err := h.app.Plans.CreateBudget(r.Context(), u.ID, planning.Budget{Name: payload.Name, Amount: payload.Amount, Period: payload.Period})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		budgets, err := h.app.Plans.ListBudgets(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, budgets)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) goals(w http.ResponseWriter, r *http.Request, u user.User, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Plans.DeleteGoal(r.Context(), u.ID, rest[0]); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name     string     `json:"name"`
			Target   float64    `json:"target"`
			Deadline *time.Time `json:"deadline"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		goal := planning.Goal{Name: payload.Name, Target: payload.Target}
		if payload.Deadline != nil {
			goal.Deadline = *payload.Deadline
		}
		created, err := h.app.Plans.CreateGoal(r.Context(), u.ID, goal)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		goals, err := h.app.Plans.ListGoals(r.Context(), u.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, goals)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// parseRange reads optional from/to query parameters in RFC 3339.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, apperrors.Invalid("Invalid 'from' timestamp.")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, apperrors.Invalid("Invalid 'to' timestamp.")
		}
		to = parsed
	}
	return from, to, nil
}

func (h *handler) revenues(w http.ResponseWriter, r *http.Request, u user.User) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Amount          float64    `json:"amount"`
			Description     string     `json:"description"`
			DriverID        string     `json:"driver_id"`
			VehicleID       string     `json:"vehicle_id"`
			PlatformID      string     `json:"platform_id"`
			PaymentMethodID string     `json:"payment_method_id"`
			OccurredAt      *time.Time `json:"occurred_at"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		rev := ledger.Revenue{
			Amount:          payload.Amount,
			Description:     payload.Description,
			DriverID:        payload.DriverID,
			VehicleID:       payload.VehicleID,
			PlatformID:      payload.PlatformID,
			PaymentMethodID: payload.PaymentMethodID,
		}
		if payload.OccurredAt != nil {
			rev.OccurredAt = *payload.OccurredAt
		}
		created, err := h.app.Entries.CreateRevenue(r.Context(), u.ID, rev)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		from, to, err := parseRange(r)
		if err != nil {
			writeAppError(w, err)
			return
		}
		revenues, err := h.app.Entries.ListRevenues(r.Context(), u.ID, from, to)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, revenues)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) expenses(w http.ResponseWriter, r *http.Request, u user.User) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Amount          float64    `json:"amount"`
			Description     string     `json:"description"`
			DriverID        string     `json:"driver_id"`
			VehicleID       string     `json:"vehicle_id"`
			ExpenseTypeID   string     `json:"expense_type_id"`
			PaymentMethodID string     `json:"payment_method_id"`
			OccurredAt      *time.Time `json:"occurred_at"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeAppError(w, apperrors.Invalid("Malformed request body."))
			return
		}
		exp := ledger.Expense{
			Amount:          payload.Amount,
			Description:     payload.Description,
			DriverID:        payload.DriverID,
			VehicleID:       payload.VehicleID,
			ExpenseTypeID:   payload.ExpenseTypeID,
			PaymentMethodID: payload.PaymentMethodID,
		}
		if payload.OccurredAt != nil {
			exp.OccurredAt = *payload.OccurredAt
		}
		created, err := h.app.Entries.CreateExpense(r.Context(), u.ID, exp)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		from, to, err := parseRange(r)
		if err != nil {
			writeAppError(w, err)
			return
		}
		expenses, err := h.app.Entries.ListExpenses(r.Context(), u.ID, from, to)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenses)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) entryForm(w http.ResponseWriter, r *http.Request, u user.User) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg, err := h.app.Defaults.EntryForm(r.Context(), u)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *handler) onboarding(w http.ResponseWriter, r *http.Request, u user.User) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Platforms      []string `json:"platforms"`
		ExpenseTypes   []string `json:"expense_types"`
		PaymentMethods []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"payment_methods"`
		Drivers []struct {
			Name   string `json:"name"`
			IsSelf bool   `json:"is_self"`
		} `json:"drivers"`
		Vehicles []struct {
			Name      string `json:"name"`
			Make      string `json:"make"`
			Model     string `json:"model"`
			Year      int    `json:"year"`
			IsPrimary bool   `json:"is_primary"`
		} `json:"vehicles"`
		Currency  string `json:"currency"`
		Locale    string `json:"locale"`
		WeekStart string `json:"week_start"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeAppError(w, apperrors.Invalid("Malformed request body."))
		return
	}

	req := onboarding.Request{
		Platforms:    payload.Platforms,
		ExpenseTypes: payload.ExpenseTypes,
		Currency:     payload.Currency,
		Locale:       payload.Locale,
		WeekStart:    payload.WeekStart,
	}
	for _, pm := range payload.PaymentMethods {
		req.PaymentMethods = append(req.PaymentMethods, onboarding.PaymentMethodInput{Name: pm.Name, Kind: catalog.PaymentMethodKind(pm.Kind)})
	}
	for _, d := range payload.Drivers {
		req.Drivers = append(req.Drivers, onboarding.DriverInput{Name: d.Name, IsSelf: d.IsSelf})
	}
	for _, v := range payload.Vehicles {
		req.Vehicles = append(req.Vehicles, onboarding.VehicleInput{Name: v.Name, Make: v.Make, Model: v.Model, Year: v.Year, IsPrimary: v.IsPrimary})
	}

	result, err := h.app.Onboarding.Complete(r.Context(), u.ID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":               result.User,
		"default_driver_id":  result.DefaultDriverID,
		"default_vehicle_id": result.DefaultVehicleID,
		"redirect_url":       result.RedirectURL,
	})
}

func (h *handler) checkout(w http.ResponseWriter, r *http.Request, u user.User) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Tier     string `json:"tier"`
		Interval string `json:"interval"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeAppError(w, apperrors.Invalid("Malformed request body."))
		return
	}
	tier, err := plan.ParseTier(payload.Tier)
	if err != nil {
		writeAppError(w, apperrors.Invalid("Unknown plan tier."))
		return
	}
	interval, err := plan.ParseInterval(payload.Interval)
	if err != nil {
		writeAppError(w, apperrors.Invalid("Unknown billing interval."))
		return
	}

	// Before onboarding the selection is stashed and picked up when
	// onboarding completes; afterwards checkout starts immediately.
	if !u.Onboarded() {
		if err := h.app.Checkout.Stash(r.Context(), u.ID, tier, interval); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "stashed"})
		return
	}

	if tier == plan.Free {
		writeAppError(w, apperrors.Invalid("A paid plan is required for checkout."))
		return
	}
	sel := billing.CheckoutSelection{UserID: u.ID, Tier: tier, Interval: interval}
	session, err := h.app.Checkout.Initiate(r.Context(), u, sel)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect_url": session.RedirectURL})
}

func (h *handler) exports(w http.ResponseWriter, r *http.Request, u user.User) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	export, err := h.app.Exports.CSV(r.Context(), u.ID, from, to)
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request, u user.User) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			writeAppError(w, apperrors.Invalid("Invalid 'days' parameter."))
			return
		}
		days = parsed
	}
	to := time.Now().UTC()
	summary, err := h.app.Entries.Summarize(r.Context(), u.ID, to.AddDate(0, 0, -days), to)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAppError maps application errors to their status codes. Unclassified
// errors surface as a generic 500 so internals never leak.
func writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Something went wrong. Please try again."
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
