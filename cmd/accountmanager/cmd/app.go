package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/rustyeddy/accountmanager/broker/sim"
	"github.com/rustyeddy/accountmanager/broker/tda"
	"github.com/rustyeddy/accountmanager/config"
	"github.com/rustyeddy/accountmanager/internal/logging"
	"github.com/rustyeddy/accountmanager/journal"
	"github.com/rustyeddy/accountmanager/secrets"
	"github.com/rustyeddy/accountmanager/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// loadConfig reads --config over the defaults and overlays the
// environment. It does not validate.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Read(cfgFile); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(cfg.Secrets.EnvFile)

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

func newStore(cfg *config.Config) (secrets.Store, error) {
	switch cfg.Secrets.Backend {
	case "env":
		env, err := secrets.NewEnv(cfg.Secrets.EnvFile)
		if err != nil {
			return nil, err
		}
		return env, nil
	case "keyring", "":
		return secrets.NewKeyring(cfg.Secrets.Service), nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}
}

// calendarLookup builds the exchange calendar lookup from the poll section.
func calendarLookup(cfg *config.Config) (session.Lookup, error) {
	open, close, err := cfg.Poll.Hours()
	if err != nil {
		return nil, err
	}
	return session.CalendarLookup(cfg.Poll.Calendar, open, close), nil
}

// newBroker builds the configured broker. The tda client needs the API key
// from the secret store and prompts for it when p is not nil.
func newBroker(cfg *config.Config, store secrets.Store, p secrets.Prompter, log *zap.Logger) (broker.Broker, error) {
	timeout, err := cfg.Broker.ParseTimeout()
	if err != nil {
		return nil, fmt.Errorf("broker.timeout: %w", err)
	}

	switch cfg.Broker.Type {
	case "tda":
		apiKey, err := secrets.Require(store, secrets.KeyAPIKey, p)
		if err != nil {
			return nil, err
		}
		callback, err := secrets.Require(store, secrets.KeyCallbackURI, p)
		if err != nil {
			return nil, err
		}
		token, err := tda.LoadToken(cfg.Broker.TokenFile)
		if err != nil {
			return nil, err
		}
		log.Debug("tda client configured",
			zap.String("base_url", cfg.Broker.BaseURL),
			zap.String("callback_uri", callback),
		)
		return tda.NewClient(tda.Config{
			BaseURL: cfg.Broker.BaseURL,
			Token:   token,
			APIKey:  apiKey,
			Timeout: timeout,
		}), nil

	case "sim":
		nlv, err := decimal.NewFromString(cfg.Broker.Sim.LiquidationValue)
		if err != nil {
			return nil, fmt.Errorf("broker.sim.liquidation_value: %w", err)
		}
		bp, err := decimal.NewFromString(cfg.Broker.Sim.BuyingPower)
		if err != nil {
			return nil, fmt.Errorf("broker.sim.buying_power: %w", err)
		}
		lookup, err := calendarLookup(cfg)
		if err != nil {
			return nil, err
		}
		b := sim.New(lookup, cfg.Poll.Product)
		b.SetBalances(cfg.Account.ID, broker.Balances{LiquidationValue: nlv, BuyingPower: bp})
		return b, nil

	default:
		return nil, fmt.Errorf("unknown broker type %q", cfg.Broker.Type)
	}
}

// newResolver picks where session hours come from.
func newResolver(cfg *config.Config, b broker.Broker) (*session.Resolver, error) {
	loc, err := cfg.Poll.Location()
	if err != nil {
		return nil, fmt.Errorf("poll.timezone: %w", err)
	}

	var lookup session.Lookup
	switch cfg.Poll.HoursSource {
	case config.HoursCalendar:
		if lookup, err = calendarLookup(cfg); err != nil {
			return nil, err
		}
	default:
		lookup = session.BrokerLookup(b, broker.Market(cfg.Poll.Market), cfg.Poll.Product)
	}

	return &session.Resolver{
		Lookup:       lookup,
		MaxLookahead: cfg.Poll.MaxLookaheadDays,
		Location:     loc,
	}, nil
}

// openSheet opens the configured workbook. Local workbooks get both
// worksheets created; a Google spreadsheet must already have them.
func openSheet(ctx context.Context, cfg *config.Config) (journal.Sheet, error) {
	ws := []string{cfg.Sheet.BalancesWorksheet, cfg.Sheet.TradesWorksheet}

	var (
		sheet journal.Sheet
		err   error
	)
	switch cfg.Sheet.Type {
	case "google":
		sheet, err = journal.NewGoogleSheet(ctx, cfg.Sheet.Spreadsheet, cfg.Sheet.Credentials)
	case "sqlite":
		if dir := filepath.Dir(cfg.Sheet.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		sheet, err = journal.NewSQLite(cfg.Sheet.Path, ws...)
	case "csv":
		sheet, err = journal.NewCSV(cfg.Sheet.Path, ws...)
	default:
		return nil, fmt.Errorf("unknown sheet type %q", cfg.Sheet.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s sheet: %w", cfg.Sheet.Type, err)
	}
	return sheet, nil
}

// rowReader is a workbook that can read its rows back.
type rowReader interface {
	Rows(ctx context.Context, worksheet string) ([]journal.Record, error)
}
