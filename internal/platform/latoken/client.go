// Package latoken is the REST client for the LATOKEN exchange: the public
// order book endpoint and the HMAC-authenticated order placement endpoint.
package latoken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agroverse/marketmaker/internal/crypto"
	"github.com/agroverse/marketmaker/internal/domain"
)

const (
	bookPath       = "/v2/book"
	orderPlacePath = "/v2/auth/order/place"

	defaultTimeout = 15 * time.Second
)

// ClientConfig holds the construction parameters for a Client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://api.latoken.com".
	BaseURL string

	// BaseCurrency and QuoteCurrency are the exchange's asset identifiers
	// (UUIDs) for the traded pair.
	BaseCurrency  string
	QuoteCurrency string

	// ProxyURL optionally routes all requests through an HTTP proxy.
	ProxyURL string

	// Timeout bounds each request; zero means the default 15s.
	Timeout time.Duration

	// Auth carries the API credentials. May be nil for public-only use;
	// PlaceOrder then fails fast.
	Auth *crypto.HMACAuth

	// Canon produces the canonical byte form signed for private requests.
	// Nil selects the LATOKEN query-string form.
	Canon crypto.Canonicalizer
}

// Client talks to one LATOKEN deployment for one trading pair. It is safe
// for concurrent use; credentials are read-only after construction.
type Client struct {
	baseURL       string
	baseCurrency  string
	quoteCurrency string
	httpClient    *http.Client
	auth          *crypto.HMACAuth
	canon         crypto.Canonicalizer
}

// New creates a Client. It fails only on an unparseable proxy URL.
func New(cfg ClientConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("latoken: parse proxy url: %w", err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	canon := cfg.Canon
	if canon == nil {
		canon = crypto.QueryCanonicalizer{}
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		baseCurrency:  cfg.BaseCurrency,
		quoteCurrency: cfg.QuoteCurrency,
		httpClient:    httpClient,
		auth:          cfg.Auth,
		canon:         canon,
	}, nil
}

// GetOrderBook fetches the current book snapshot for the configured pair,
// truncated to limit levels per side. No retries; retry policy belongs to
// the caller.
func (c *Client) GetOrderBook(ctx context.Context, limit int) (domain.OrderBook, error) {
	u := fmt.Sprintf("%s%s/%s/%s?limit=%d", c.baseURL, bookPath, c.baseCurrency, c.quoteCurrency, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("latoken: create book request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("latoken: fetch book: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("latoken: read book response: %w: %v", domain.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.OrderBook{}, fmt.Errorf("latoken: book HTTP %d: %w: %s", resp.StatusCode, domain.ErrNetwork, string(body))
	}

	var raw apiBook
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.OrderBook{}, fmt.Errorf("latoken: decode book: %w: %v", domain.ErrMalformedResponse, err)
	}

	return raw.toDomain(time.Now().UTC()), nil
}

// PlaceOrder signs and submits one order. The signature is HMAC-SHA512 over
// "POST" + path + the canonical query-string form of the parameters, while
// the transmitted body is the same parameters as JSON; the server re-derives
// the query-string form when verifying, so the two must list identical
// values. Has real-money effect against a live venue.
func (c *Client) PlaceOrder(ctx context.Context, order domain.OrderRequest) (domain.OrderResult, error) {
	if !c.auth.Configured() {
		return domain.OrderResult{}, fmt.Errorf("latoken: place order: %w: credentials not configured", domain.ErrUnauthorized)
	}

	fields := orderFields(order)
	canonical := c.canon.Canonicalize(fields)

	jsonBody := make(map[string]string, len(fields))
	for _, f := range fields {
		jsonBody[f.Key] = f.Value
	}
	payload, err := json.Marshal(jsonBody)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("latoken: marshal order body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+orderPlacePath, bytes.NewReader(payload))
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("latoken: create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.auth.Headers(http.MethodPost, orderPlacePath, canonical) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("latoken: place order: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("latoken: read order response: %w: %v", domain.ErrNetwork, err)
	}
	if err := checkOrderStatus(resp.StatusCode, body); err != nil {
		return domain.OrderResult{}, fmt.Errorf("latoken: place order: %w", err)
	}

	var raw apiOrderResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.OrderResult{}, fmt.Errorf("latoken: decode order result: %w: %v", domain.ErrMalformedResponse, err)
	}

	return raw.toDomain(), nil
}

// Pair returns the configured base/quote asset identifiers.
func (c *Client) Pair() (base, quote string) {
	return c.baseCurrency, c.quoteCurrency
}

// orderFields lays out the order parameters in the fixed order the exchange
// re-derives when verifying the signature. Optional fields (clientOrderId,
// price) are omitted entirely rather than sent empty.
func orderFields(order domain.OrderRequest) []crypto.Field {
	fields := []crypto.Field{
		{Key: "baseCurrency", Value: order.BaseCurrency},
		{Key: "quoteCurrency", Value: order.QuoteCurrency},
		{Key: "side", Value: string(order.Side)},
		{Key: "condition", Value: string(order.Condition)},
		{Key: "type", Value: string(order.Type())},
	}
	if order.ClientOrderID != "" {
		fields = append(fields, crypto.Field{Key: "clientOrderId", Value: order.ClientOrderID})
	}
	if order.Price > 0 {
		fields = append(fields, crypto.Field{Key: "price", Value: formatDecimal(order.Price)})
	}
	fields = append(fields,
		crypto.Field{Key: "quantity", Value: formatDecimal(order.Quantity)},
		crypto.Field{Key: "timestamp", Value: strconv.FormatInt(order.Timestamp, 10)},
	)
	return fields
}

// formatDecimal renders a price or quantity with the shortest representation
// that round-trips, avoiding exponent notation for the magnitudes the
// exchange accepts.
func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// checkOrderStatus maps non-2xx order placement statuses to domain errors,
// preserving the raw body for operator diagnostics.
func checkOrderStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUnauthorized, statusCode, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrExchangeRejected, statusCode, bodyStr)
	}
}
