package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Broker is the read-only view of a brokerage account the poller needs.
type Broker interface {
	GetAccount(ctx context.Context, accountID string) (Account, error)
	GetOrders(ctx context.Context, accountID string, q OrderQuery) ([]Order, error)
	GetMarketHours(ctx context.Context, market Market, date time.Time) (*MarketHours, error)
}

type Account struct {
	ID       string
	Balances Balances
}

type Balances struct {
	LiquidationValue decimal.Decimal
	BuyingPower      decimal.Decimal
}

// Order is a raw filled order. Times are kept as the broker sent them;
// parsing is left to the report layer so a bad timestamp only drops one order.
type Order struct {
	ID             string
	Status         string
	EnteredTime    string
	CloseTime      string
	FilledQuantity decimal.Decimal
	Price          decimal.Decimal
	Legs           []Leg
}

// Leg is one instrument of a (possibly multi-leg) order.
type Leg struct {
	Symbol           string
	UnderlyingSymbol string
	PositionEffect   string
	Instruction      string
	Quantity         decimal.Decimal
}

const (
	PositionOpening = "OPENING"
	PositionClosing = "CLOSING"

	StatusFilled = "FILLED"
)

// Opening reports whether the first leg establishes a new position.
func (o Order) Opening() bool {
	return len(o.Legs) > 0 && o.Legs[0].PositionEffect == PositionOpening
}

type OrderQuery struct {
	From   time.Time
	To     time.Time
	Status string
}

// TrailingWindow returns the query covering midnight `days` calendar days
// before now through the last instant of today, in now's location.
func TrailingWindow(now time.Time, days int) OrderQuery {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return OrderQuery{
		From:   midnight.AddDate(0, 0, -days),
		To:     midnight.AddDate(0, 0, 1).Add(-time.Nanosecond),
		Status: StatusFilled,
	}
}

type Market string

const (
	MarketEquity Market = "EQUITY"
	MarketOption Market = "OPTION"
	MarketFuture Market = "FUTURE"
	MarketBond   Market = "BOND"
	MarketForex  Market = "FOREX"
)

// MarketHours holds the trading hours of one market on one day, keyed by
// product segment (e.g. "EQO", "IND").
type MarketHours struct {
	Market   Market
	Date     time.Time
	Segments map[string]SegmentHours
}

type SegmentHours struct {
	Product       string
	IsOpen        bool
	RegularMarket []Interval
}

type Interval struct {
	Start time.Time
	End   time.Time
}

// Regular returns the first regular-market interval of product, or false
// when the segment is absent or has no hours.
func (h *MarketHours) Regular(product string) (Interval, bool) {
	if h == nil {
		return Interval{}, false
	}
	seg, ok := h.Segments[product]
	if !ok || len(seg.RegularMarket) == 0 {
		return Interval{}, false
	}
	return seg.RegularMarket[0], true
}
