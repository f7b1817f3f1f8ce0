package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/accountmanager/broker/brokerobs"
	"github.com/rustyeddy/accountmanager/config"
	"github.com/rustyeddy/accountmanager/internal/clock"
	"github.com/rustyeddy/accountmanager/internal/logging"
	"github.com/rustyeddy/accountmanager/internal/obs"
	"github.com/rustyeddy/accountmanager/journal"
	"github.com/rustyeddy/accountmanager/pkg/id"
	"github.com/rustyeddy/accountmanager/poller"
	"github.com/rustyeddy/accountmanager/secrets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the account and log balances and trades",
	Long: `Validate the broker and sheet configuration, then poll until interrupted.

Every interval the account balances are printed and appended to the
balances worksheet. Opening trades are appended to the trades worksheet at
startup and once after each session closes (or every poll with
poll.order_policy: every_poll).

Examples:
  accountmanager run --account 123456789 --spreadsheet 1AbC...
  accountmanager run --sim --sheet-type csv --sheet-path ./out`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runFlags struct {
	account     string
	spreadsheet string
	balancesWS  string
	tradesWS    string
	credentials string
	sheetType   string
	sheetPath   string
	sim         bool
	trace       bool
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runFlags.account, "account", "a", "", "brokerage account id")
	f.StringVarP(&runFlags.spreadsheet, "spreadsheet", "s", "", "Google spreadsheet id")
	f.StringVar(&runFlags.balancesWS, "balances-worksheet", "", "worksheet for balance rows")
	f.StringVar(&runFlags.tradesWS, "trades-worksheet", "", "worksheet for trade rows")
	f.StringVar(&runFlags.credentials, "sheets-credentials", "", "Google service account or authorized-user credentials file")
	f.StringVar(&runFlags.sheetType, "sheet-type", "", "google, sqlite or csv")
	f.StringVar(&runFlags.sheetPath, "sheet-path", "", "SQLite file or CSV directory")
	f.BoolVar(&runFlags.sim, "sim", false, "use the simulated broker")
	f.BoolVar(&runFlags.trace, "trace", false, "export trace spans to stderr")
}

// applyRunFlags overlays command line flags, which win over the
// environment and the config file.
func applyRunFlags(cfg *config.Config) {
	set := func(v string, dst *string) {
		if v != "" {
			*dst = v
		}
	}
	set(runFlags.account, &cfg.Account.ID)
	set(runFlags.spreadsheet, &cfg.Sheet.Spreadsheet)
	set(runFlags.balancesWS, &cfg.Sheet.BalancesWorksheet)
	set(runFlags.tradesWS, &cfg.Sheet.TradesWorksheet)
	set(runFlags.credentials, &cfg.Sheet.Credentials)
	set(runFlags.sheetType, &cfg.Sheet.Type)
	set(runFlags.sheetPath, &cfg.Sheet.Path)
	if runFlags.sim {
		cfg.Broker.Type = "sim"
	}
	if runFlags.trace {
		cfg.Log.Trace = true
	}
}

func pollerOptions(cfg *config.Config) (poller.Options, error) {
	interval, err := cfg.Poll.ParseInterval()
	if err != nil {
		return poller.Options{}, fmt.Errorf("poll.interval: %w", err)
	}
	loc, err := cfg.Poll.Location()
	if err != nil {
		return poller.Options{}, fmt.Errorf("poll.timezone: %w", err)
	}
	base, err := cfg.Retry.ParseBaseDelay()
	if err != nil {
		return poller.Options{}, fmt.Errorf("retry.base_delay: %w", err)
	}
	maxDelay, err := cfg.Retry.ParseMaxDelay()
	if err != nil {
		return poller.Options{}, fmt.Errorf("retry.max_delay: %w", err)
	}

	return poller.Options{
		AccountID:    cfg.Account.ID,
		Interval:     interval,
		OrderPolicy:  cfg.Poll.OrderPolicy,
		LookbackDays: cfg.Poll.OrderLookbackDays,
		WaitForOpen:  cfg.Poll.WaitForOpen,
		Retry:        poller.RetryPolicy{Attempts: cfg.Retry.Attempts, BaseDelay: base, MaxDelay: maxDelay},
		Location:     loc,
	}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	log = logging.WithRun(log, id.New())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Log.Trace {
		shutdown, err := obs.Init(ctx, cmd.ErrOrStderr(), version)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown(context.Background())
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	b, err := newBroker(cfg, store, secrets.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout()), log)
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	b = brokerobs.Wrap(b, log, obs.Tracer())

	resolver, err := newResolver(cfg, b)
	if err != nil {
		return err
	}

	sheet, err := openSheet(ctx, cfg)
	if err != nil {
		return err
	}
	defer sheet.Close()

	opts, err := pollerOptions(cfg)
	if err != nil {
		return err
	}
	opts.Console = cmd.OutOrStdout()

	w := journal.NewWriter(sheet, cfg.Sheet.BalancesWorksheet, cfg.Sheet.TradesWorksheet, opts.Location)
	p := poller.New(b, w, resolver, opts, clock.Real{}, log)

	log.Info("starting",
		zap.String("version", version),
		zap.String("account", cfg.Account.ID),
		zap.String("broker", cfg.Broker.Type),
		zap.String("sheet", cfg.Sheet.Type),
		zap.Duration("interval", opts.Interval),
		zap.String("order_policy", opts.OrderPolicy),
	)
	if err := p.Run(ctx); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
