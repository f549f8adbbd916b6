// Package provider implements the client for the account aggregation API.
package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// Minimum gap between consecutive API requests.
	requestDelay = 200 * time.Millisecond

	httpClientTimeout = 30 * time.Second
)

var (
	// ErrAuthFailed is returned when the provider rejects the credentials or token.
	ErrAuthFailed = errors.New("provider authentication failed")
)

// Client is the surface of the aggregation API that the sync pipeline uses.
// The HTTP implementation is swapped for a fake in tests.
type Client interface {
	CreateLinkToken(userID int64) (*LinkTokenResponse, error)
	ExchangePublicToken(publicToken string) (*ExchangeResponse, error)
	GetAccounts(accessToken string) ([]Account, error)
	GetTransactions(accessToken, startDate, endDate string) ([]Transaction, error)
	GetHoldings(accessToken string) (*HoldingsResponse, error)
}

// HTTPClient calls the aggregation API over HTTPS. Credentials are injected
// at construction; nothing reads them from ambient globals.
type HTTPClient struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// NewHTTPClient creates a client for the given API environment.
func NewHTTPClient(baseURL, clientID, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: httpClientTimeout,
		},
	}
}

// post sends a JSON body to an API path and decodes the response into out.
func (c *HTTPClient) post(path string, body map[string]any, out any) error {
	// Rate limiting
	c.mu.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < requestDelay {
		time.Sleep(requestDelay - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	// Every call carries the client credentials
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrAuthFailed, apiErrorMessage(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, apiErrorMessage(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// apiErrorMessage extracts the provider's error message from a response body,
// falling back to the raw body when it isn't the usual envelope.
func apiErrorMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorMessage != "" {
		return fmt.Sprintf("%s (%s)", apiErr.ErrorMessage, apiErr.ErrorCode)
	}
	return string(body)
}

// CreateLinkToken requests a short-lived link token for the client-side widget.
func (c *HTTPClient) CreateLinkToken(userID int64) (*LinkTokenResponse, error) {
	body := map[string]any{
		"user":          map[string]string{"client_user_id": fmt.Sprintf("%d", userID)},
		"client_name":   "pocketledger",
		"products":      []string{"auth", "transactions"},
		"country_codes": []string{"US"},
		"language":      "en",
	}

	var out LinkTokenResponse
	if err := c.post("/link/token/create", body, &out); err != nil {
		return nil, fmt.Errorf("creating link token: %w", err)
	}
	return &out, nil
}

// ExchangePublicToken trades a widget public token for a long-lived access token.
func (c *HTTPClient) ExchangePublicToken(publicToken string) (*ExchangeResponse, error) {
	body := map[string]any{
		"public_token": publicToken,
	}

	var out ExchangeResponse
	if err := c.post("/item/public_token/exchange", body, &out); err != nil {
		return nil, fmt.Errorf("exchanging public token: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("exchanging public token: empty access token in response")
	}
	return &out, nil
}

// GetAccounts retrieves the current account list for an access token.
func (c *HTTPClient) GetAccounts(accessToken string) ([]Account, error) {
	body := map[string]any{
		"access_token": accessToken,
	}

	var out accountsResponse
	if err := c.post("/accounts/get", body, &out); err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}
	return out.Accounts, nil
}

// GetTransactions retrieves transactions within [startDate, endDate], both
// calendar dates formatted YYYY-MM-DD.
func (c *HTTPClient) GetTransactions(accessToken, startDate, endDate string) ([]Transaction, error) {
	body := map[string]any{
		"access_token": accessToken,
		"start_date":   startDate,
		"end_date":     endDate,
	}

	var out transactionsResponse
	if err := c.post("/transactions/get", body, &out); err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	return out.Transactions, nil
}

// GetHoldings retrieves investment holdings plus their security metadata.
func (c *HTTPClient) GetHoldings(accessToken string) (*HoldingsResponse, error) {
	body := map[string]any{
		"access_token": accessToken,
	}

	var out HoldingsResponse
	if err := c.post("/investments/holdings/get", body, &out); err != nil {
		return nil, fmt.Errorf("fetching holdings: %w", err)
	}
	return &out, nil
}
