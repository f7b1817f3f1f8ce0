package sim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/rustyeddy/accountmanager/pkg/id"
	"github.com/rustyeddy/accountmanager/session"
	"github.com/shopspring/decimal"
)

// TimeLayout is the order timestamp format the simulated broker emits.
const TimeLayout = "2006-01-02T15:04:05-0700"

var ErrAccountNotFound = errors.New("account not found")

// Broker is an in-memory broker for dry runs and tests. Market hours come
// from a session lookup and are reported under a single product segment.
type Broker struct {
	mu       sync.Mutex
	accounts map[string]broker.Balances
	orders   map[string][]broker.Order
	hours    session.Lookup
	product  string
	failures map[string][]error
	calls    map[string]int
}

var _ broker.Broker = (*Broker)(nil)

// New creates a broker whose market hours come from hours (nil means no
// sessions at all), reported under product (default "IND").
func New(hours session.Lookup, product string) *Broker {
	if product == "" {
		product = session.DefaultProduct
	}
	return &Broker{
		accounts: make(map[string]broker.Balances),
		orders:   make(map[string][]broker.Order),
		hours:    hours,
		product:  product,
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// SetBalances opens the account if needed and sets its balances.
func (b *Broker) SetBalances(accountID string, bal broker.Balances) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[accountID] = bal
}

// Fill records a filled order on the account. Missing IDs are generated;
// the stored order is returned.
func (b *Broker) Fill(accountID string, o broker.Order) broker.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o.ID == "" {
		o.ID = id.New()
	}
	if o.Status == "" {
		o.Status = broker.StatusFilled
	}
	b.orders[accountID] = append(b.orders[accountID], o)
	return o
}

// FillSpread records an opening multi-leg option order entered and filled
// at `at`, one leg per symbol.
func (b *Broker) FillSpread(accountID, underlying string, symbols []string, qty int64, price decimal.Decimal, at time.Time) broker.Order {
	o := broker.Order{
		EnteredTime:    at.Format(TimeLayout),
		CloseTime:      at.Format(TimeLayout),
		FilledQuantity: decimal.NewFromInt(qty),
		Price:          price,
	}
	for _, s := range symbols {
		o.Legs = append(o.Legs, broker.Leg{
			Symbol:           s,
			UnderlyingSymbol: underlying,
			PositionEffect:   broker.PositionOpening,
			Quantity:         decimal.NewFromInt(qty),
		})
	}
	return b.Fill(accountID, o)
}

// FailNext makes the next call of method (e.g. "GetAccount") return err.
// Failures queue up in order.
func (b *Broker) FailNext(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method] = append(b.failures[method], err)
}

// Calls reports how many times method has been called.
func (b *Broker) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *Broker) enter(method string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls[method]++
	q := b.failures[method]
	if len(q) == 0 {
		return nil
	}
	b.failures[method] = q[1:]
	return q[0]
}

func (b *Broker) GetAccount(ctx context.Context, accountID string) (broker.Account, error) {
	if err := b.enter("GetAccount"); err != nil {
		return broker.Account{}, err
	}
	if err := ctx.Err(); err != nil {
		return broker.Account{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.accounts[accountID]
	if !ok {
		return broker.Account{}, &broker.HTTPError{
			Op:     "get account",
			Status: http.StatusNotFound,
			Body:   fmt.Sprintf("%v: %s", ErrAccountNotFound, accountID),
		}
	}
	return broker.Account{ID: accountID, Balances: bal}, nil
}

// GetOrders returns the account's orders entered within [q.From, q.To]
// with the requested status, oldest first.
func (b *Broker) GetOrders(ctx context.Context, accountID string, q broker.OrderQuery) ([]broker.Order, error) {
	if err := b.enter("GetOrders"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accounts[accountID]; !ok {
		return nil, &broker.HTTPError{Op: "get orders", Status: http.StatusNotFound}
	}

	type entered struct {
		at time.Time
		o  broker.Order
	}
	var out []entered
	for _, o := range b.orders[accountID] {
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		at, err := broker.ParseTime(o.EnteredTime)
		if err == nil {
			if !q.From.IsZero() && at.Before(q.From) {
				continue
			}
			if !q.To.IsZero() && at.After(q.To) {
				continue
			}
		}
		out = append(out, entered{at: at, o: o})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })

	orders := make([]broker.Order, 0, len(out))
	for _, e := range out {
		orders = append(orders, e.o)
	}
	return orders, nil
}

func (b *Broker) GetMarketHours(ctx context.Context, market broker.Market, date time.Time) (*broker.MarketHours, error) {
	if err := b.enter("GetMarketHours"); err != nil {
		return nil, err
	}

	hours := &broker.MarketHours{
		Market:   market,
		Date:     date,
		Segments: map[string]broker.SegmentHours{},
	}
	if b.hours == nil {
		return hours, nil
	}

	s, err := b.hours.Hours(ctx, date)
	if err != nil {
		return nil, err
	}
	seg := broker.SegmentHours{Product: b.product}
	if s != nil {
		seg.IsOpen = true
		seg.RegularMarket = []broker.Interval{{Start: s.Open, End: s.Close}}
	}
	hours.Segments[b.product] = seg
	return hours, nil
}
