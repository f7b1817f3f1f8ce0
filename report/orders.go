package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/shopspring/decimal"
)

// ErrMalformedSymbol is returned when a leg symbol does not end in
// _<expiry><P|C><strike>.
var ErrMalformedSymbol = errors.New("malformed option symbol")

var strikePattern = regexp.MustCompile(`_(\d+)[PC](\d+)$`)

// Row is one reportable opening order.
type Row struct {
	OrderID    string
	OpenedAt   time.Time
	FilledAt   time.Time
	Quantity   int64
	Underlying string
	Strikes    string
	Price      decimal.Decimal
}

// OrderError ties a formatting failure to the order that caused it.
type OrderError struct {
	OrderID string
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s: %v", e.OrderID, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// FormatOrders turns filled orders into report rows, keeping input order.
// Orders whose first leg is not OPENING are skipped silently; orders that
// cannot be formatted are skipped and returned as *OrderError.
func FormatOrders(orders []broker.Order) ([]Row, []error) {
	var (
		rows []Row
		errs []error
	)
	for _, o := range orders {
		if !o.Opening() {
			continue
		}
		row, err := formatOrder(o)
		if err != nil {
			errs = append(errs, &OrderError{OrderID: o.ID, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func formatOrder(o broker.Order) (Row, error) {
	strikes, err := Strikes(o.Legs)
	if err != nil {
		return Row{}, err
	}
	opened, err := ParseTime(o.EnteredTime)
	if err != nil {
		return Row{}, fmt.Errorf("entered time: %w", err)
	}
	filled, err := ParseTime(o.CloseTime)
	if err != nil {
		return Row{}, fmt.Errorf("close time: %w", err)
	}

	return Row{
		OrderID:    o.ID,
		OpenedAt:   opened,
		FilledAt:   filled,
		Quantity:   o.FilledQuantity.IntPart(),
		Underlying: o.Legs[0].UnderlyingSymbol,
		Strikes:    strikes,
		Price:      o.Price,
	}, nil
}

// Strikes extracts the strike of every leg, in leg order, joined by "/".
func Strikes(legs []broker.Leg) (string, error) {
	if len(legs) == 0 {
		return "", fmt.Errorf("%w: no legs", ErrMalformedSymbol)
	}
	parts := make([]string, 0, len(legs))
	for _, l := range legs {
		m := strikePattern.FindStringSubmatch(l.Symbol)
		if m == nil {
			return "", fmt.Errorf("%w: %q", ErrMalformedSymbol, l.Symbol)
		}
		parts = append(parts, m[2])
	}
	return strings.Join(parts, "/"), nil
}

// ParseTime parses an order timestamp, keeping its offset.
func ParseTime(s string) (time.Time, error) {
	return broker.ParseTime(s)
}
