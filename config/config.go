package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the complete accountmanager configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Sheet   SheetConfig   `json:"sheet" yaml:"sheet"`
	Poll    PollConfig    `json:"poll" yaml:"poll"`
	Retry   RetryConfig   `json:"retry" yaml:"retry"`
	Secrets SecretsConfig `json:"secrets" yaml:"secrets"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig names the brokerage account to log.
type AccountConfig struct {
	ID string `json:"id" yaml:"id"`
}

// BrokerConfig selects and configures the broker client.
type BrokerConfig struct {
	Type      string    `json:"type" yaml:"type"` // "tda" or "sim"
	BaseURL   string    `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TokenFile string    `json:"token_file,omitempty" yaml:"token_file,omitempty"`
	Timeout   string    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Sim       SimConfig `json:"sim,omitempty" yaml:"sim,omitempty"`
}

// SimConfig seeds the in-memory broker.
type SimConfig struct {
	LiquidationValue string `json:"liquidation_value" yaml:"liquidation_value"`
	BuyingPower      string `json:"buying_power" yaml:"buying_power"`
}

// SheetConfig selects where rows are appended.
type SheetConfig struct {
	Type              string `json:"type" yaml:"type"` // "google", "sqlite" or "csv"
	Spreadsheet       string `json:"spreadsheet,omitempty" yaml:"spreadsheet,omitempty"`
	Credentials       string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Path              string `json:"path,omitempty" yaml:"path,omitempty"`
	BalancesWorksheet string `json:"balances_worksheet" yaml:"balances_worksheet"`
	TradesWorksheet   string `json:"trades_worksheet" yaml:"trades_worksheet"`
}

// PollConfig drives the polling loop and session lookup.
type PollConfig struct {
	Interval          string `json:"interval" yaml:"interval"` // e.g. "5s"
	OrderPolicy       string `json:"order_policy" yaml:"order_policy"`
	OrderLookbackDays int    `json:"order_lookback_days" yaml:"order_lookback_days"`
	WaitForOpen       bool   `json:"wait_for_open" yaml:"wait_for_open"`
	Timezone          string `json:"timezone" yaml:"timezone"`
	MaxLookaheadDays  int    `json:"max_lookahead_days" yaml:"max_lookahead_days"`

	HoursSource string `json:"hours_source" yaml:"hours_source"` // "broker" or "calendar"
	Market      string `json:"market" yaml:"market"`
	Product     string `json:"product" yaml:"product"`
	Calendar    string `json:"calendar" yaml:"calendar"` // exchange MIC, e.g. "xnys"
	Open        string `json:"open" yaml:"open"`         // "09:30"
	Close       string `json:"close" yaml:"close"`       // "16:15"
}

// RetryConfig controls backoff for transient failures.
type RetryConfig struct {
	Attempts  int    `json:"attempts" yaml:"attempts"`
	BaseDelay string `json:"base_delay" yaml:"base_delay"`
	MaxDelay  string `json:"max_delay" yaml:"max_delay"`
}

// SecretsConfig selects the secret store.
type SecretsConfig struct {
	Backend string `json:"backend" yaml:"backend"` // "keyring" or "env"
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	EnvFile string `json:"env_file,omitempty" yaml:"env_file,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
	Trace  bool   `json:"trace" yaml:"trace"`
}

const (
	PolicySessionClose = "session_close"
	PolicyEveryPoll    = "every_poll"

	HoursBroker   = "broker"
	HoursCalendar = "calendar"
)

// ParseInterval converts the poll interval to time.Duration
func (p PollConfig) ParseInterval() (time.Duration, error) {
	return parseDuration(p.Interval)
}

// Location loads the reference timezone.
func (p PollConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(p.Timezone)
}

// Hours returns the calendar open and close as offsets from midnight.
func (p PollConfig) Hours() (open, close time.Duration, err error) {
	if open, err = parseClock(p.Open); err != nil {
		return 0, 0, fmt.Errorf("poll.open: %w", err)
	}
	if close, err = parseClock(p.Close); err != nil {
		return 0, 0, fmt.Errorf("poll.close: %w", err)
	}
	return open, close, nil
}

func (r RetryConfig) ParseBaseDelay() (time.Duration, error) {
	return parseDuration(r.BaseDelay)
}

func (r RetryConfig) ParseMaxDelay() (time.Duration, error) {
	return parseDuration(r.MaxDelay)
}

func (b BrokerConfig) ParseTimeout() (time.Duration, error) {
	return parseDuration(b.Timeout)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Read loads a configuration file (YAML or JSON) over the defaults without
// validating it.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// LoadFromFile reads and validates a configuration file.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays ACCOUNTMANAGER_* environment variables, after loading
// envFile (or ./.env) if present. Priority: ENV > .env file > config file.
func (c *Config) ApplyEnv(envFile string) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	str := func(key string, dst *string) {
		if v := os.Getenv("ACCOUNTMANAGER_" + key); v != "" {
			*dst = v
		}
	}
	str("ACCOUNT_ID", &c.Account.ID)
	str("BROKER_TYPE", &c.Broker.Type)
	str("BROKER_BASE_URL", &c.Broker.BaseURL)
	str("TOKEN_FILE", &c.Broker.TokenFile)
	str("SHEET_TYPE", &c.Sheet.Type)
	str("SPREADSHEET", &c.Sheet.Spreadsheet)
	str("SHEETS_CREDENTIALS", &c.Sheet.Credentials)
	str("SHEET_PATH", &c.Sheet.Path)
	str("BALANCES_WORKSHEET", &c.Sheet.BalancesWorksheet)
	str("TRADES_WORKSHEET", &c.Sheet.TradesWorksheet)
	str("POLL_INTERVAL", &c.Poll.Interval)
	str("ORDER_POLICY", &c.Poll.OrderPolicy)
	str("TIMEZONE", &c.Poll.Timezone)
	str("SECRETS_BACKEND", &c.Secrets.Backend)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v := os.Getenv("ACCOUNTMANAGER_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.Attempts = n
		}
	}
	if v := os.Getenv("ACCOUNTMANAGER_WAIT_FOR_OPEN"); v != "" {
		c.Poll.WaitForOpen = v == "true" || v == "1"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.ID == "" {
		return fmt.Errorf("account.id is required")
	}

	switch c.Broker.Type {
	case "tda":
		if c.Broker.TokenFile == "" {
			return fmt.Errorf("broker.token_file is required for tda")
		}
	case "sim":
		for name, v := range map[string]string{
			"broker.sim.liquidation_value": c.Broker.Sim.LiquidationValue,
			"broker.sim.buying_power":      c.Broker.Sim.BuyingPower,
		} {
			if _, err := decimal.NewFromString(v); err != nil {
				return fmt.Errorf("%s must be a number", name)
			}
		}
	default:
		return fmt.Errorf("broker.type must be 'tda' or 'sim'")
	}
	if _, err := c.Broker.ParseTimeout(); err != nil {
		return fmt.Errorf("broker.timeout: %w", err)
	}

	switch c.Sheet.Type {
	case "google":
		if c.Sheet.Spreadsheet == "" {
			return fmt.Errorf("sheet.spreadsheet is required for google")
		}
	case "sqlite", "csv":
		if c.Sheet.Path == "" {
			return fmt.Errorf("sheet.path is required for %s", c.Sheet.Type)
		}
	default:
		return fmt.Errorf("sheet.type must be 'google', 'sqlite' or 'csv'")
	}
	if c.Sheet.BalancesWorksheet == "" || c.Sheet.TradesWorksheet == "" {
		return fmt.Errorf("sheet.balances_worksheet and sheet.trades_worksheet are required")
	}
	if c.Sheet.BalancesWorksheet == c.Sheet.TradesWorksheet {
		return fmt.Errorf("sheet.balances_worksheet and sheet.trades_worksheet must differ")
	}

	if d, err := c.Poll.ParseInterval(); err != nil || d <= 0 {
		return fmt.Errorf("poll.interval must be a positive duration")
	}
	if c.Poll.OrderPolicy != PolicySessionClose && c.Poll.OrderPolicy != PolicyEveryPoll {
		return fmt.Errorf("poll.order_policy must be '%s' or '%s'", PolicySessionClose, PolicyEveryPoll)
	}
	if c.Poll.OrderLookbackDays < 1 {
		return fmt.Errorf("poll.order_lookback_days must be at least 1")
	}
	if c.Poll.MaxLookaheadDays <= 0 {
		return fmt.Errorf("poll.max_lookahead_days must be positive")
	}
	if _, err := c.Poll.Location(); err != nil {
		return fmt.Errorf("poll.timezone: %w", err)
	}
	switch c.Poll.HoursSource {
	case HoursBroker:
	case HoursCalendar:
		open, close, err := c.Poll.Hours()
		if err != nil {
			return err
		}
		if open >= close {
			return fmt.Errorf("poll.open must be before poll.close")
		}
	default:
		return fmt.Errorf("poll.hours_source must be '%s' or '%s'", HoursBroker, HoursCalendar)
	}

	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if _, err := c.Retry.ParseBaseDelay(); err != nil {
		return fmt.Errorf("retry.base_delay: %w", err)
	}
	if _, err := c.Retry.ParseMaxDelay(); err != nil {
		return fmt.Errorf("retry.max_delay: %w", err)
	}

	if c.Secrets.Backend != "keyring" && c.Secrets.Backend != "env" {
		return fmt.Errorf("secrets.backend must be 'keyring' or 'env'")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Type:      "tda",
			TokenFile: "token.json",
			Timeout:   "30s",
			Sim: SimConfig{
				LiquidationValue: "100000",
				BuyingPower:      "40000",
			},
		},
		Sheet: SheetConfig{
			Type:              "google",
			Spreadsheet:       "",
			Credentials:       "service_account.json",
			BalancesWorksheet: "Balances",
			TradesWorksheet:   "Trades",
		},
		Poll: PollConfig{
			Interval:          "5s",
			OrderPolicy:       PolicySessionClose,
			OrderLookbackDays: 4,
			Timezone:          "America/New_York",
			MaxLookaheadDays:  30,
			HoursSource:       HoursBroker,
			Market:            "OPTION",
			Product:           "IND",
			Calendar:          "xnys",
			Open:              "09:30",
			Close:             "16:15",
		},
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: "1s",
			MaxDelay:  "30s",
		},
		Secrets: SecretsConfig{
			Backend: "keyring",
			Service: "system",
			EnvFile: ".env",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
