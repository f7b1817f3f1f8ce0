package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/rustyeddy/accountmanager/internal/clock"
	"github.com/rustyeddy/accountmanager/report"
	"github.com/rustyeddy/accountmanager/session"
	"go.uber.org/zap"
)

const (
	PolicySessionClose = "session_close"
	PolicyEveryPoll    = "every_poll"

	DefaultInterval     = 5 * time.Second
	DefaultLookbackDays = 4
)

// Sink receives balance and trade rows. *journal.Writer implements it.
type Sink interface {
	Check(ctx context.Context) error
	AppendBalance(ctx context.Context, at time.Time, b broker.Balances) (int, error)
	AppendTrades(ctx context.Context, rows []report.Row) (int, error)
}

// Resolver returns the next session that has not closed yet.
// *session.Resolver implements it.
type Resolver interface {
	Next(ctx context.Context) (session.Session, error)
}

type Options struct {
	AccountID    string
	Interval     time.Duration
	OrderPolicy  string
	LookbackDays int // zero means DefaultLookbackDays
	WaitForOpen  bool
	Retry        RetryPolicy
	// Location is the reference timezone for dates, order windows and
	// balance timestamps.
	Location *time.Location
	// Console receives the balance table every iteration; nil discards it.
	Console io.Writer
}

// Result summarizes one Step.
type Result struct {
	Session       session.Session
	InSession     bool // snapshot taken between open and close
	Snapshot      report.DisplayRow
	BalanceRow    int
	OrdersFetched bool
	OrdersEmitted int
	OrderErrors   int
}

// Poller drives the validate / resolve / fetch / emit / sleep loop for one
// account.
type Poller struct {
	broker   broker.Broker
	sink     Sink
	resolver Resolver
	clock    clock.Clock
	log      *zap.Logger
	opts     Options

	mu    sync.Mutex
	state State

	current  *session.Session
	pending  *session.Session
	started  bool
	reported map[string]bool
	emitted  map[string]bool
}

func New(b broker.Broker, sink Sink, r Resolver, opts Options, c clock.Clock, log *zap.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.OrderPolicy == "" {
		opts.OrderPolicy = PolicySessionClose
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultLookbackDays
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Console == nil {
		opts.Console = io.Discard
	}
	if c == nil {
		c = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		broker:   b,
		sink:     sink,
		resolver: r,
		clock:    c,
		log:      log.Named("poller"),
		opts:     opts,
		reported: make(map[string]bool),
		emitted:  make(map[string]bool),
	}
}

// State reports what the poller is doing right now.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) enter(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Poller) now() time.Time {
	return p.clock.Now().In(p.opts.Location)
}

// Validate checks once that the account is readable and both worksheets
// exist.
func (p *Poller) Validate(ctx context.Context) error {
	p.enter(Validating)

	if p.opts.AccountID == "" {
		return &ConfigurationError{Target: "broker", Err: errors.New("missing account id")}
	}
	if _, err := p.broker.GetAccount(ctx, p.opts.AccountID); err != nil {
		p.checkToken(err)
		return &ConfigurationError{Target: "broker", Err: err}
	}
	p.log.Info("broker configuration is valid", zap.String("account", p.opts.AccountID))

	if err := p.sink.Check(ctx); err != nil {
		return &ConfigurationError{Target: "sheet", Err: err}
	}
	p.log.Info("sheet configuration is valid")
	return nil
}

// checkToken tells the operator to refresh the token file when the broker
// rejected the access token.
func (p *Poller) checkToken(err error) {
	var herr *broker.HTTPError
	if errors.As(err, &herr) && herr.Unauthorized() {
		p.log.Error("broker rejected the access token; refresh the token file", zap.Int("status", herr.Status))
	}
}

// Step runs one iteration: resolve the session, fetch and emit the
// snapshot, then fetch and emit orders when they are due.
func (p *Poller) Step(ctx context.Context) (Result, error) {
	var res Result

	p.enter(ResolvingSession)
	sess, err := p.resolve(ctx)
	if err != nil {
		return res, &StepError{State: ResolvingSession, Err: err}
	}
	res.Session = sess
	now := p.now()
	res.InSession = sess.Contains(now)

	p.enter(FetchingSnapshot)
	var acct broker.Account
	err = p.retry(ctx, "get account", func(ctx context.Context) error {
		var err error
		acct, err = p.broker.GetAccount(ctx, p.opts.AccountID)
		return err
	})
	if err != nil {
		return res, &StepError{State: FetchingSnapshot, Err: err}
	}

	p.enter(EmittingSnapshot)
	if row, err := report.FormatSnapshot(acct.Balances, now); err != nil {
		p.log.Warn("snapshot not displayed", zap.Error(err))
	} else {
		res.Snapshot = row
		if err := report.PrintSnapshot(p.opts.Console, row); err != nil {
			p.log.Warn("print snapshot", zap.Error(err))
		}
	}
	err = p.retry(ctx, "append balance", func(ctx context.Context) error {
		row, err := p.sink.AppendBalance(ctx, now, acct.Balances)
		if err != nil && row > 0 {
			// written but not formatted; writing again would duplicate it
			p.log.Warn("balance row not formatted", zap.Int("row", row), zap.Error(err))
			err = nil
		}
		res.BalanceRow = row
		return err
	})
	if err != nil {
		return res, &StepError{State: EmittingSnapshot, Err: err}
	}
	p.log.Info("balance recorded",
		zap.Int("row", res.BalanceRow),
		zap.Stringer("nlv", acct.Balances.LiquidationValue),
		zap.Stringer("bp", acct.Balances.BuyingPower),
		zap.Bool("in_session", res.InSession),
	)

	if !p.ordersDue() {
		return res, nil
	}
	if err := p.emitOrders(ctx, now, &res); err != nil {
		return res, err
	}
	return res, nil
}

// resolve keeps the held session until it closes. A closed session whose
// orders have not been reported is parked in pending.
func (p *Poller) resolve(ctx context.Context) (session.Session, error) {
	now := p.now()
	if p.current != nil && p.current.Closed(now) {
		if p.opts.OrderPolicy == PolicySessionClose && !p.reported[p.current.ID()] {
			closed := *p.current
			p.pending = &closed
		}
		p.log.Info("session closed", zap.String("session", p.current.ID()))
		p.current = nil
	}
	if p.current != nil {
		return *p.current, nil
	}

	var sess session.Session
	err := p.retry(ctx, "resolve session", func(ctx context.Context) error {
		var err error
		sess, err = p.resolver.Next(ctx)
		return err
	})
	if err != nil {
		return session.Session{}, err
	}
	p.current = &sess
	p.log.Info("next session",
		zap.String("session", sess.ID()),
		zap.Time("open", sess.Open),
		zap.Time("close", sess.Close),
	)
	return sess, nil
}

// ordersDue: every poll under every_poll; otherwise on the first
// iteration (to catch up on fills made while not running) and once after
// each held session closes.
func (p *Poller) ordersDue() bool {
	if p.opts.OrderPolicy == PolicyEveryPoll {
		return true
	}
	return !p.started || p.pending != nil
}

func (p *Poller) emitOrders(ctx context.Context, now time.Time, res *Result) error {
	p.enter(FetchingOrders)
	q := broker.TrailingWindow(now, p.opts.LookbackDays)

	var orders []broker.Order
	err := p.retry(ctx, "get orders", func(ctx context.Context) error {
		var err error
		orders, err = p.broker.GetOrders(ctx, p.opts.AccountID, q)
		return err
	})
	if err != nil {
		return &StepError{State: FetchingOrders, Err: err}
	}
	res.OrdersFetched = true

	p.enter(EmittingOrders)
	rows, errs := report.FormatOrders(orders)
	for _, err := range errs {
		p.log.Warn("order skipped", zap.Error(err))
	}
	res.OrderErrors = len(errs)

	fresh := rows[:0:0]
	for _, r := range rows {
		if !p.emitted[r.OrderID] {
			fresh = append(fresh, r)
		}
	}

	err = p.retry(ctx, "append trades", func(ctx context.Context) error {
		n, err := p.sink.AppendTrades(ctx, fresh)
		if err != nil && n > 0 {
			p.log.Warn("trade rows not formatted", zap.Int("rows", n), zap.Error(err))
			err = nil
		}
		res.OrdersEmitted = n
		return err
	})
	if err != nil {
		return &StepError{State: EmittingOrders, Err: err}
	}
	for _, r := range fresh {
		p.emitted[r.OrderID] = true
	}

	if p.pending != nil {
		p.reported[p.pending.ID()] = true
		p.log.Info("session orders reported", zap.String("session", p.pending.ID()), zap.Int("orders", len(fresh)))
		p.pending = nil
	}
	p.started = true
	p.log.Info("orders recorded",
		zap.Int("fetched", len(orders)),
		zap.Int("opening", len(rows)),
		zap.Int("new", len(fresh)),
	)
	return nil
}

// nextSleep is the poll interval, stretched to the session open when
// waiting for the open is enabled.
func (p *Poller) nextSleep() time.Duration {
	d := p.opts.Interval
	if !p.opts.WaitForOpen || p.current == nil {
		return d
	}
	if untilOpen := p.current.Open.Sub(p.clock.Now()); untilOpen > d {
		return untilOpen
	}
	return d
}

// Run validates the configuration, then steps and sleeps until ctx is
// cancelled (returning nil) or a step fails permanently. Transient
// failures that outlast their retries skip the iteration.
func (p *Poller) Run(ctx context.Context) error {
	defer p.enter(Stopped)

	if err := p.Validate(ctx); err != nil {
		return err
	}

	for {
		_, err := p.Step(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if !broker.IsTemporary(err) {
				p.checkToken(err)
				p.log.Error("polling stopped", zap.Error(err))
				return fmt.Errorf("poll account %s: %w", p.opts.AccountID, err)
			}
			p.log.Warn("iteration skipped", zap.Error(err))
		}

		p.enter(Sleeping)
		d := p.nextSleep()
		if d > p.opts.Interval {
			p.log.Info("sleeping until session open", zap.Duration("for", d))
		}
		if err := clock.Sleep(ctx, p.clock, d); err != nil {
			return nil
		}
	}
}
