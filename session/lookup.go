package session

import (
	"context"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/scmhub/calendar"
)

const (
	DefaultMarket  = broker.MarketOption
	DefaultProduct = "IND"
)

// BrokerLookup asks the broker for the market hours of each day and takes
// the first regular-market interval of the product segment. A day without
// that segment has no session.
func BrokerLookup(b broker.Broker, market broker.Market, product string) Lookup {
	if market == "" {
		market = DefaultMarket
	}
	if product == "" {
		product = DefaultProduct
	}
	return LookupFunc(func(ctx context.Context, date time.Time) (*Session, error) {
		hours, err := b.GetMarketHours(ctx, market, date)
		if err != nil {
			return nil, err
		}
		iv, ok := hours.Regular(product)
		if !ok {
			return nil, nil
		}
		return &Session{Open: iv.Start, Close: iv.End}, nil
	})
}

// CalendarLookup derives sessions from an exchange holiday calendar with
// fixed regular hours, given as offsets from local midnight. Unknown MICs
// fall back to XNYS, and then to plain weekdays in New York.
func CalendarLookup(mic string, open, close time.Duration) Lookup {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	var loc *time.Location
	if cal != nil {
		loc = cal.Loc
	}
	if loc == nil {
		loc, _ = time.LoadLocation("America/New_York")
	}
	if loc == nil {
		loc = time.UTC
	}

	businessDay := func(d time.Time) bool {
		if cal != nil {
			return cal.IsBusinessDay(d)
		}
		wd := d.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}

	return LookupFunc(func(_ context.Context, date time.Time) (*Session, error) {
		at := func(off time.Duration) time.Time {
			// wall-clock minutes so DST days keep their local hours
			return time.Date(date.Year(), date.Month(), date.Day(), 0, int(off/time.Minute), 0, 0, loc)
		}
		if !businessDay(at(12 * time.Hour)) {
			return nil, nil
		}
		return &Session{Open: at(open), Close: at(close)}, nil
	})
}
