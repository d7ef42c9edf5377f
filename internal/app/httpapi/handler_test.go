package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	app "github.com/gigledger/gigledger/internal/app"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/middleware"
)

func newTestServer(t *testing.T) (*app.Application, http.Handler) {
	t.Helper()
	application, err := app.New(app.Dependencies{}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	return application, NewHandler(application, []byte("test-secret"), nil)
}

func do(handler http.Handler, method, path, userID string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, application *app.Application, email string) user.User {
	t.Helper()
	u, err := application.Users.Register(context.Background(), email, "Test User")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestSignupIssuesToken(t *testing.T) {
	_, handler := newTestServer(t)

	rec := do(handler, http.MethodPost, "/signup", "", map[string]string{
		"email": "driver@example.com",
		"name":  "Dana",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
}

func TestMeRequiresAuthentication(t *testing.T) {
	_, handler := newTestServer(t)

	rec := do(handler, http.MethodGet, "/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMeReturnsUsageAndLimits(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "me@example.com")

	rec := do(handler, http.MethodGet, "/me", u.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "limits") || !strings.Contains(body, "usage") {
		t.Fatalf("expected limits and usage in response, got %s", body)
	}
}

func TestDriverCreationBlockedAtPlanLimit(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "limited@example.com")

	first := do(handler, http.MethodPost, "/me/drivers", u.ID, map[string]any{"name": "Me", "is_self": true})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := do(handler, http.MethodPost, "/me/drivers", u.ID, map[string]any{"name": "Partner"})
	if second.Code != http.StatusForbidden {
		t.Fatalf("expected 403 at the free-tier driver limit, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "Upgrade") {
		t.Fatalf("expected upgrade hint in message, got %s", second.Body.String())
	}
}

func TestDriverValidationReturns400(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "invalid@example.com")

	rec := do(handler, http.MethodPost, "/me/drivers", u.ID, map[string]any{"name": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d", rec.Code)
	}
}

func TestForeignDriverDeleteReturns404(t *testing.T) {
	application, handler := newTestServer(t)
	owner := registerUser(t, application, "owner@example.com")
	other := registerUser(t, application, "other@example.com")

	rec := do(handler, http.MethodPost, "/me/drivers", owner.ID, map[string]any{"name": "Me"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created struct {
		ID string `json:"ID"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created driver: %v", err)
	}

	del := do(handler, http.MethodDelete, "/me/drivers/"+created.ID, other.ID, nil)
	if del.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign driver, got %d", del.Code)
	}
}

func TestOnboardingRepeatReturns409(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "onboard@example.com")

	payload := map[string]any{
		"platforms": []string{"Uber"},
		"drivers":   []map[string]any{{"name": "Me", "is_self": true}},
		"currency":  "usd",
	}
	first := do(handler, http.MethodPost, "/me/onboarding", u.ID, payload)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	second := do(handler, http.MethodPost, "/me/onboarding", u.ID, payload)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeated onboarding, got %d", second.Code)
	}
}

func TestCheckoutStashedBeforeOnboarding(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "checkout@example.com")

	rec := do(handler, http.MethodPost, "/me/checkout", u.ID, map[string]string{
		"tier":     "PRO",
		"interval": "monthly",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 stash before onboarding, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := application.Checkout.TakeStashed(context.Background(), u.ID); !ok {
		t.Fatal("expected selection to be stashed")
	}
}

func TestExportBlockedOnFreeTier(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "export@example.com")

	rec := do(handler, http.MethodPost, "/me/exports", u.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for free-tier export, got %d", rec.Code)
	}
}

func TestRevenueCreateAndSummary(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "entries@example.com")

	rec := do(handler, http.MethodPost, "/me/revenues", u.ID, map[string]any{
		"amount":      120.50,
		"description": "Friday rides",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	list := do(handler, http.MethodGet, "/me/revenues", u.ID, nil)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}

	summary := do(handler, http.MethodGet, "/me/summary?days=7", u.ID, nil)
	if summary.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", summary.Code, summary.Body.String())
	}
	if !strings.Contains(summary.Body.String(), "120.5") {
		t.Fatalf("expected revenue total in summary, got %s", summary.Body.String())
	}
}

func TestEntryFormReturnsConfig(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "form@example.com")

	rec := do(handler, http.MethodGet, "/me/entry-form", u.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "show_driver_field") {
		t.Fatalf("expected form config fields, got %s", rec.Body.String())
	}
}

func TestUnknownResourceReturns404(t *testing.T) {
	application, handler := newTestServer(t)
	u := registerUser(t, application, "missing@example.com")

	rec := do(handler, http.MethodGet, "/me/nonexistent", u.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
