package tda

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, Token: "test-token", APIKey: "KEY", Timeout: 5 * time.Second})
}

func TestNewClient(t *testing.T) {
	c := NewClient(Config{Token: "tok"})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, "tok", c.token)
	assert.NotNil(t, c.httpClient)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)

	c = NewClient(Config{BaseURL: "http://localhost:9999/v1/", Token: "tok"})
	assert.Equal(t, "http://localhost:9999/v1", c.baseURL)
}

func TestGetAccount_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/accounts/123456", r.URL.Path)
		assert.Equal(t, "orders,positions", r.URL.Query().Get("fields"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"securitiesAccount":{"accountId":"123456","currentBalances":{"liquidationValue":100000.5,"buyingPower":40000}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL + "/v1")
	acct, err := c.GetAccount(context.Background(), "123456")
	require.NoError(t, err)

	assert.Equal(t, "123456", acct.ID)
	assert.True(t, decimal.RequireFromString("100000.5").Equal(acct.Balances.LiquidationValue))
	assert.True(t, decimal.NewFromInt(40000).Equal(acct.Balances.BuyingPower))
}

func TestGetAccount_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"token expired"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.GetAccount(context.Background(), "123")
	require.Error(t, err)

	var herr *broker.HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusUnauthorized, herr.Status)
	assert.Contains(t, herr.Body, "token expired")
	assert.True(t, herr.Unauthorized())
	assert.False(t, broker.IsTemporary(err))
}

func TestGetAccount_ServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetAccount(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, broker.IsTemporary(err))
}

func TestGetAccount_Validation(t *testing.T) {
	_, err := newTestClient("http://unused").GetAccount(context.Background(), "")
	assert.Error(t, err)

	c := NewClient(Config{BaseURL: "http://unused"})
	_, err = c.GetAccount(context.Background(), "123")
	assert.ErrorContains(t, err, "missing access token")
}

func TestGetOrders_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/123/orders", r.URL.Path)
		assert.Equal(t, "2024-03-08", r.URL.Query().Get("fromEnteredTime"))
		assert.Equal(t, "2024-03-12", r.URL.Query().Get("toEnteredTime"))
		assert.Equal(t, "FILLED", r.URL.Query().Get("status"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			{
				"orderId": 4501234567,
				"status": "FILLED",
				"enteredTime": "2024-03-12T14:31:05+0000",
				"closeTime": "2024-03-12T14:31:06+0000",
				"filledQuantity": 2,
				"price": 1.35,
				"orderLegCollection": [
					{"instrument": {"symbol": "SPXW_031224P5100", "underlyingSymbol": "$SPX.X"}, "positionEffect": "OPENING", "instruction": "SELL_TO_OPEN", "quantity": 2},
					{"instrument": {"symbol": "SPXW_031224P5080", "underlyingSymbol": "$SPX.X"}, "positionEffect": "OPENING", "instruction": "BUY_TO_OPEN", "quantity": 2}
				]
			}
		]`))
	}))
	defer server.Close()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	q := broker.TrailingWindow(time.Date(2024, 3, 12, 16, 5, 0, 0, ny), 4)

	orders, err := newTestClient(server.URL).GetOrders(context.Background(), "123", q)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "4501234567", o.ID)
	assert.Equal(t, "2024-03-12T14:31:05+0000", o.EnteredTime)
	assert.True(t, decimal.RequireFromString("1.35").Equal(o.Price))
	assert.True(t, decimal.NewFromInt(2).Equal(o.FilledQuantity))
	require.Len(t, o.Legs, 2)
	assert.Equal(t, "SPXW_031224P5100", o.Legs[0].Symbol)
	assert.Equal(t, "$SPX.X", o.Legs[0].UnderlyingSymbol)
	assert.True(t, o.Opening())
}

func TestGetOrders_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	orders, err := newTestClient(server.URL).GetOrders(context.Background(), "123", broker.OrderQuery{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGetOrders_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetOrders(context.Background(), "123", broker.OrderQuery{})
	assert.ErrorContains(t, err, "decode response")
}

func TestGetMarketHours_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/OPTION/hours", r.URL.Path)
		assert.Equal(t, "2024-03-12", r.URL.Query().Get("date"))
		assert.Equal(t, "KEY", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{
			"option": {
				"EQO": {"product": "EQO", "isOpen": true, "sessionHours": {"regularMarket": [{"start": "2024-03-12T09:30:00-04:00", "end": "2024-03-12T16:00:00-04:00"}]}},
				"IND": {"product": "IND", "isOpen": true, "sessionHours": {"regularMarket": [{"start": "2024-03-12T09:30:00-04:00", "end": "2024-03-12T16:15:00-04:00"}]}}
			}
		}`))
	}))
	defer server.Close()

	date := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	hours, err := newTestClient(server.URL).GetMarketHours(context.Background(), broker.MarketOption, date)
	require.NoError(t, err)

	iv, ok := hours.Regular("IND")
	require.True(t, ok)
	assert.True(t, time.Date(2024, 3, 12, 13, 30, 0, 0, time.UTC).Equal(iv.Start))
	assert.True(t, time.Date(2024, 3, 12, 20, 15, 0, 0, time.UTC).Equal(iv.End))

	_, ok = hours.Regular("EQO")
	assert.True(t, ok)
}

func TestGetMarketHours_Closed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"option": {"option": {"product": "option", "isOpen": false}}}`))
	}))
	defer server.Close()

	hours, err := newTestClient(server.URL).GetMarketHours(context.Background(), broker.MarketOption, time.Now())
	require.NoError(t, err)

	_, ok := hours.Regular("IND")
	assert.False(t, ok)
}

func TestGetMarketHours_BadTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"option": {"IND": {"sessionHours": {"regularMarket": [{"start": "soon", "end": "later"}]}}}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetMarketHours(context.Background(), broker.MarketOption, time.Now())
	assert.ErrorContains(t, err, "OPTION/IND")
}

func TestLoadToken(t *testing.T) {
	dir := t.TempDir()

	flat := filepath.Join(dir, "flat.json")
	require.NoError(t, os.WriteFile(flat, []byte(`{"access_token": "abc", "expires_in": 1800}`), 0o600))
	tok, err := LoadToken(flat)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	nested := filepath.Join(dir, "nested.json")
	require.NoError(t, os.WriteFile(nested, []byte(`{"creation_timestamp": 1, "token": {"access_token": "xyz"}}`), 0o600))
	tok, err = LoadToken(nested)
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))
	_, err = LoadToken(empty)
	assert.Error(t, err)

	_, err = LoadToken(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
