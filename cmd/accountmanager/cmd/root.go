package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "accountmanager",
	Short: "Log brokerage balances and opening trades to a spreadsheet",
	Long: `Accountmanager polls a brokerage account during market sessions.

Every poll it prints the account's net liquidation value, buying power and
buying power utilization, and appends a timestamped balance row to the
balances worksheet. Once per session close it appends the opening trades
filled during the last few days to the trades worksheet.

Rows go to a Google Sheets spreadsheet, a local SQLite workbook, or a
directory of CSV files.`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console or json)")
}
