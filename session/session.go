package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxLookahead bounds the day-by-day search for the next session.
const DefaultMaxLookahead = 30

// ErrNoSession is returned when no session closes after now within the
// lookahead window.
var ErrNoSession = errors.New("no trading session found")

// Session is one regular trading session. Open is always before Close.
type Session struct {
	Open  time.Time
	Close time.Time
}

// ID identifies the session by its close instant.
func (s Session) ID() string {
	return s.Close.UTC().Format("20060102T150405Z")
}

// Contains reports whether t falls in [Open, Close).
func (s Session) Contains(t time.Time) bool {
	return !t.Before(s.Open) && t.Before(s.Close)
}

// Closed reports whether the session is over at t.
func (s Session) Closed(t time.Time) bool {
	return !t.Before(s.Close)
}

func (s Session) String() string {
	return fmt.Sprintf("%s - %s", s.Open.Format(time.RFC3339), s.Close.Format(time.RFC3339))
}

// Lookup returns the session of a calendar day. A nil session with a nil
// error means the market has no session that day.
type Lookup interface {
	Hours(ctx context.Context, date time.Time) (*Session, error)
}

type LookupFunc func(ctx context.Context, date time.Time) (*Session, error)

func (f LookupFunc) Hours(ctx context.Context, date time.Time) (*Session, error) {
	return f(ctx, date)
}

// Next walks calendar days forward from `from` (in from's location) and
// returns the first session whose close is strictly after now. At most
// maxDays days are tried; maxDays <= 0 means DefaultMaxLookahead.
func Next(ctx context.Context, lookup Lookup, from, now time.Time, maxDays int) (Session, error) {
	if lookup == nil {
		return Session{}, errors.New("session: nil lookup")
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxLookahead
	}

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i < maxDays; i++ {
		if err := ctx.Err(); err != nil {
			return Session{}, err
		}

		day := start.AddDate(0, 0, i)
		s, err := lookup.Hours(ctx, day)
		if err != nil {
			return Session{}, fmt.Errorf("session hours %s: %w", day.Format("2006-01-02"), err)
		}
		if s == nil || !s.Open.Before(s.Close) {
			continue
		}
		if s.Close.After(now) {
			return *s, nil
		}
	}

	last := start.AddDate(0, 0, maxDays-1)
	return Session{}, fmt.Errorf("%w between %s and %s", ErrNoSession,
		start.Format("2006-01-02"), last.Format("2006-01-02"))
}

// Resolver binds a lookup to a reference location and clock.
type Resolver struct {
	Lookup       Lookup
	MaxLookahead int
	Location     *time.Location
	Now          func() time.Time
}

func (r *Resolver) now() time.Time {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	if r.Location != nil {
		now = now.In(r.Location)
	}
	return now
}

// Next returns the next session that has not yet closed, searching from today.
func (r *Resolver) Next(ctx context.Context) (Session, error) {
	now := r.now()
	return Next(ctx, r.Lookup, now, now, r.MaxLookahead)
}

// NextFrom searches from the calendar day of `from` instead of today. The
// day is taken as written and re-anchored in the resolver's location.
func (r *Resolver) NextFrom(ctx context.Context, from time.Time) (Session, error) {
	if r.Location != nil {
		from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, r.Location)
	}
	return Next(ctx, r.Lookup, from, r.now(), r.MaxLookahead)
}
