package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gigledger/gigledger/internal/app/domain/billing"
	"github.com/gigledger/gigledger/internal/app/domain/user"
)

// HTTPProvider talks to the hosted payment provider's session API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider constructs a provider client.
func NewHTTPProvider(baseURL, apiKey string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPProvider{baseURL: baseURL, apiKey: apiKey, client: client}
}

// CreateSession posts a session request and extracts the id and redirect URL
// from the provider's response.
func (p *HTTPProvider) CreateSession(ctx context.Context, u user.User, sel billing.CheckoutSelection) (billing.CheckoutSession, error) {
	payload, err := json.Marshal(map[string]string{
		"customer_email": u.Email,
		"customer_ref":   u.ID,
		"plan":           string(sel.Tier),
		"interval":       string(sel.Interval),
	})
	if err != nil {
		return billing.CheckoutSession{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/checkout/sessions", bytes.NewReader(payload))
	if err != nil {
		return billing.CheckoutSession{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return billing.CheckoutSession{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return billing.CheckoutSession{}, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		message := gjson.GetBytes(body, "error.message").String()
		if message == "" {
			message = resp.Status
		}
		return billing.CheckoutSession{}, fmt.Errorf("checkout provider: %s", message)
	}

	session := billing.CheckoutSession{
		ID:          gjson.GetBytes(body, "id").String(),
		RedirectURL: gjson.GetBytes(body, "url").String(),
	}
	if session.ID == "" || session.RedirectURL == "" {
		return billing.CheckoutSession{}, fmt.Errorf("checkout provider: malformed session response")
	}
	return session, nil
}
