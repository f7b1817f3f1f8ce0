package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/accountmanager/broker/tda"
	"github.com/rustyeddy/accountmanager/config"
	"github.com/rustyeddy/accountmanager/journal"
	"github.com/rustyeddy/accountmanager/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore map[string]string

func (m memStore) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", secrets.ErrNotFound
	}
	return v, nil
}

func (m memStore) Set(key, value string) error {
	m[key] = value
	return nil
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accountmanager.yaml")

	out, err := execute(t, context.Background(), "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	// defaults leave the account id empty
	_, err = execute(t, context.Background(), "config", "validate", "-f", path)
	assert.ErrorContains(t, err, "account.id is required")

	cfg, err := config.Read(path)
	require.NoError(t, err)
	cfg.Account.ID = "123456789"
	cfg.Sheet.Spreadsheet = "1AbC"
	require.NoError(t, cfg.SaveToFile(path))

	out, err = execute(t, context.Background(), "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Account: 123456789 (tda broker)")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestNewBrokerSim(t *testing.T) {
	cfg := config.Default()
	cfg.Account.ID = "SIM1"
	cfg.Broker.Type = "sim"

	b, err := newBroker(cfg, memStore{}, nil, zap.NewNop())
	require.NoError(t, err)

	acct, err := b.GetAccount(context.Background(), "SIM1")
	require.NoError(t, err)
	assert.Equal(t, "100000", acct.Balances.LiquidationValue.String())
	assert.Equal(t, "40000", acct.Balances.BuyingPower.String())
}

func TestNewBrokerTDA(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(tokenFile, []byte(`{"access_token": "abc"}`), 0o600))

	cfg := config.Default()
	cfg.Broker.TokenFile = tokenFile

	store := memStore{secrets.KeyAPIKey: "KEY", secrets.KeyCallbackURI: "https://127.0.0.1"}
	b, err := newBroker(cfg, store, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &tda.Client{}, b)

	_, err = newBroker(cfg, memStore{}, nil, zap.NewNop())
	assert.ErrorIs(t, err, secrets.ErrNotFound)

	cfg.Broker.TokenFile = filepath.Join(dir, "missing.json")
	_, err = newBroker(cfg, store, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenSheet(t *testing.T) {
	ctx := context.Background()

	for _, typ := range []string{"sqlite", "csv"} {
		t.Run(typ, func(t *testing.T) {
			cfg := config.Default()
			cfg.Sheet.Type = typ
			cfg.Sheet.Path = filepath.Join(t.TempDir(), "book")

			sheet, err := openSheet(ctx, cfg)
			require.NoError(t, err)
			defer sheet.Close()

			for _, ws := range []string{"Balances", "Trades"} {
				ok, err := sheet.HasWorksheet(ctx, ws)
				require.NoError(t, err)
				assert.True(t, ok, ws)
			}
			_, ok := sheet.(rowReader)
			assert.True(t, ok)
		})
	}

	cfg := config.Default()
	cfg.Sheet.Type = "xlsx"
	_, err := openSheet(ctx, cfg)
	assert.Error(t, err)
}

func TestPrintRecords(t *testing.T) {
	var out bytes.Buffer
	printRecords(&out, []journal.Record{
		{Row: 1, Values: []string{"Order ID", "Entered Time"}},
		{Row: 2, Values: []string{"42"}},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "Row")
	assert.Contains(t, lines[1], "B")
	assert.Contains(t, lines[3], "Order ID")
	assert.Contains(t, lines[4], "42")
	assert.True(t, strings.HasPrefix(lines[5], "+-"))
}

func TestPollerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Account.ID = "A1"

	opts, err := pollerOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, "A1", opts.AccountID)
	assert.Equal(t, 5*time.Second, opts.Interval)
	assert.Equal(t, 4, opts.LookbackDays)
	assert.Equal(t, "America/New_York", opts.Location.String())
	assert.Equal(t, 3, opts.Retry.Attempts)
	assert.Equal(t, time.Second, opts.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, opts.Retry.MaxDelay)
}

func TestRunSimToCSV(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	path := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
account:
  id: SIM1
broker:
  type: sim
sheet:
  type: csv
  path: `+out+`
poll:
  interval: 20ms
  hours_source: calendar
log:
  level: error
`), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	console, err := execute(t, ctx, "run", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, console, "Buying Power")
	assert.Contains(t, console, "$100,000")

	b, err := os.ReadFile(filepath.Join(out, "Balances.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "100000,40000")
}
