// Package wix reads the DAO-approved daily budget from the Wix Data API.
// The budget is an opaque non-negative USD value stored in a named data item;
// this client validates only its numeric sanity, not its provenance.
package wix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/agroverse/marketmaker/internal/domain"
)

const (
	defaultAPIURL  = "https://www.wixapis.com/wix-data/v2/items"
	collectionID   = "ExchangeRate"
	defaultTimeout = 10 * time.Second
)

// ClientConfig holds the construction parameters for a Client.
type ClientConfig struct {
	// APIURL overrides the Wix Data items endpoint; empty selects the
	// production URL.
	APIURL string

	// APIKey is sent as the Authorization header.
	APIKey string

	// AccountID and SiteID identify the Wix tenant.
	AccountID string
	SiteID    string

	// DailyBudgetItemID is the data item holding the budget value.
	DailyBudgetItemID string

	Timeout time.Duration
}

// Client fetches the daily budget. Safe for concurrent use.
type Client struct {
	apiURL     string
	apiKey     string
	accountID  string
	siteID     string
	itemID     string
	httpClient *http.Client
}

// New creates a Client from cfg.
func New(cfg ClientConfig) *Client {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     cfg.APIKey,
		accountID:  cfg.AccountID,
		siteID:     cfg.SiteID,
		itemID:     cfg.DailyBudgetItemID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// budgetResponse is the slice of the Wix data item payload we care about:
// dataItem.data.exchangeRate.
type budgetResponse struct {
	DataItem struct {
		Data struct {
			ExchangeRate *float64 `json:"exchangeRate"`
		} `json:"data"`
	} `json:"dataItem"`
}

// DailyBudget returns the current daily budget in USD. A missing item,
// transport failure, or an insane value (negative, NaN, infinite) is an
// error; the scheduler treats any of them as a skipped cycle.
func (c *Client) DailyBudget(ctx context.Context) (float64, error) {
	u := fmt.Sprintf("%s/%s?dataCollectionId=%s", c.apiURL, c.itemID, collectionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("wix: create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("wix-account-id", c.accountID)
	req.Header.Set("wix-site-id", c.siteID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("wix: fetch daily budget: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("wix: read response: %w: %v", domain.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("wix: budget lookup HTTP %d: %w: %s", resp.StatusCode, domain.ErrNetwork, string(body))
	}

	var parsed budgetResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("wix: decode response: %w: %v", domain.ErrMalformedResponse, err)
	}

	rate := parsed.DataItem.Data.ExchangeRate
	if rate == nil {
		return 0, fmt.Errorf("wix: %w: dataItem.data.exchangeRate missing", domain.ErrMalformedResponse)
	}
	if math.IsNaN(*rate) || math.IsInf(*rate, 0) || *rate < 0 {
		return 0, fmt.Errorf("wix: %w: budget value %v out of range", domain.ErrMalformedResponse, *rate)
	}

	return *rate, nil
}
