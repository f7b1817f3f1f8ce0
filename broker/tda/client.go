package tda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
)

const (
	// DefaultBaseURL is the TD Ameritrade REST API root.
	DefaultBaseURL = "https://api.tdameritrade.com/v1"

	dateLayout = "2006-01-02"
)

// Client is a read-only TD Ameritrade REST client.
type Client struct {
	baseURL    string
	token      string
	apiKey     string
	httpClient *http.Client
}

var _ broker.Broker = (*Client)(nil)

type Config struct {
	BaseURL string
	Token   string // OAuth access token
	APIKey  string // consumer key, sent with market-data requests
	Timeout time.Duration
}

// NewClient creates a new TD Ameritrade client
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.Token,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetAccount fetches the account with its balances.
func (c *Client) GetAccount(ctx context.Context, accountID string) (broker.Account, error) {
	if accountID == "" {
		return broker.Account{}, fmt.Errorf("tda: missing account id")
	}

	q := url.Values{}
	q.Set("fields", "orders,positions")

	var resp accountResponse
	if err := c.get(ctx, "get account", path.Join("accounts", accountID), q, &resp); err != nil {
		return broker.Account{}, err
	}

	sa := resp.SecuritiesAccount
	id := sa.AccountID
	if id == "" {
		id = accountID
	}
	return broker.Account{
		ID: id,
		Balances: broker.Balances{
			LiquidationValue: sa.CurrentBalances.LiquidationValue,
			BuyingPower:      sa.CurrentBalances.BuyingPower,
		},
	}, nil
}

// GetOrders fetches orders entered between q.From and q.To.
func (c *Client) GetOrders(ctx context.Context, accountID string, q broker.OrderQuery) ([]broker.Order, error) {
	if accountID == "" {
		return nil, fmt.Errorf("tda: missing account id")
	}

	params := url.Values{}
	if !q.From.IsZero() {
		params.Set("fromEnteredTime", q.From.Format(dateLayout))
	}
	if !q.To.IsZero() {
		params.Set("toEnteredTime", q.To.Format(dateLayout))
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}

	var resp []orderJSON
	if err := c.get(ctx, "get orders", path.Join("accounts", accountID, "orders"), params, &resp); err != nil {
		return nil, err
	}

	orders := make([]broker.Order, 0, len(resp))
	for _, o := range resp {
		orders = append(orders, o.toOrder())
	}
	return orders, nil
}

// GetMarketHours fetches the hours of every product segment of market on date.
func (c *Client) GetMarketHours(ctx context.Context, market broker.Market, date time.Time) (*broker.MarketHours, error) {
	params := url.Values{}
	params.Set("date", date.Format(dateLayout))
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	var resp map[string]map[string]hoursJSON
	if err := c.get(ctx, "get market hours", path.Join("marketdata", string(market), "hours"), params, &resp); err != nil {
		return nil, err
	}

	hours := &broker.MarketHours{
		Market:   market,
		Date:     date,
		Segments: make(map[string]broker.SegmentHours),
	}
	for _, products := range resp {
		for product, h := range products {
			seg, err := h.toSegment(product)
			if err != nil {
				return nil, fmt.Errorf("tda: market hours %s/%s: %w", market, product, err)
			}
			hours.Segments[product] = seg
		}
	}
	return hours, nil
}

func (c *Client) get(ctx context.Context, op, p string, q url.Values, out any) error {
	if c.token == "" {
		return fmt.Errorf("tda: missing access token")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("tda: base url: %w", err)
	}
	u.Path = path.Join(u.Path, p)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &broker.HTTPError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
