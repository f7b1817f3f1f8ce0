package brokerobs

import (
	"context"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/rustyeddy/accountmanager/internal/obs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// observableBroker wraps a Broker with logging and tracing
type observableBroker struct {
	broker broker.Broker
	log    *zap.Logger
	tracer trace.Tracer
}

var _ broker.Broker = (*observableBroker)(nil)

// Wrap wraps b so every call gets a span and a debug log line. A nil
// tracer uses the global service tracer.
func Wrap(b broker.Broker, log *zap.Logger, tracer trace.Tracer) broker.Broker {
	if log == nil {
		log = zap.NewNop()
	}
	if tracer == nil {
		tracer = obs.Tracer()
	}
	return &observableBroker{broker: b, log: log.Named("broker"), tracer: tracer}
}

// traceID ties a log line to the span that produced it.
func traceID(ctx context.Context) zap.Field {
	return zap.String("trace_id", obs.TraceID(ctx))
}

func (ob *observableBroker) GetAccount(ctx context.Context, accountID string) (acct broker.Account, err error) {
	ctx, span := ob.tracer.Start(ctx, "broker.GetAccount",
		trace.WithAttributes(attribute.String("account.id", accountID)))
	defer func() { obs.End(span, err) }()

	start := time.Now()
	acct, err = ob.broker.GetAccount(ctx, accountID)
	if err != nil {
		ob.log.Warn("get account failed", zap.String("account", accountID), traceID(ctx), zap.Error(err))
		return acct, err
	}

	ob.log.Debug("account fetched",
		zap.String("account", accountID),
		zap.Stringer("nlv", acct.Balances.LiquidationValue),
		zap.Stringer("bp", acct.Balances.BuyingPower),
		zap.Duration("took", time.Since(start)),
		traceID(ctx),
	)
	return acct, nil
}

func (ob *observableBroker) GetOrders(ctx context.Context, accountID string, q broker.OrderQuery) (orders []broker.Order, err error) {
	ctx, span := ob.tracer.Start(ctx, "broker.GetOrders",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.String("orders.from", q.From.Format(time.RFC3339)),
			attribute.String("orders.to", q.To.Format(time.RFC3339)),
			attribute.String("orders.status", q.Status),
		))
	defer func() { obs.End(span, err) }()

	start := time.Now()
	orders, err = ob.broker.GetOrders(ctx, accountID, q)
	if err != nil {
		ob.log.Warn("get orders failed", zap.String("account", accountID), traceID(ctx), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	ob.log.Debug("orders fetched",
		zap.String("account", accountID),
		zap.Int("count", len(orders)),
		zap.Duration("took", time.Since(start)),
		traceID(ctx),
	)
	return orders, nil
}

func (ob *observableBroker) GetMarketHours(ctx context.Context, market broker.Market, date time.Time) (hours *broker.MarketHours, err error) {
	ctx, span := ob.tracer.Start(ctx, "broker.GetMarketHours",
		trace.WithAttributes(
			attribute.String("market", string(market)),
			attribute.String("date", date.Format("2006-01-02")),
		))
	defer func() { obs.End(span, err) }()

	hours, err = ob.broker.GetMarketHours(ctx, market, date)
	if err != nil {
		ob.log.Warn("get market hours failed", zap.String("market", string(market)), traceID(ctx), zap.Error(err))
		return nil, err
	}

	segments := 0
	if hours != nil {
		segments = len(hours.Segments)
	}
	ob.log.Debug("market hours fetched",
		zap.String("market", string(market)),
		zap.Time("date", date),
		zap.Int("segments", segments),
		traceID(ctx),
	)
	return hours, nil
}
