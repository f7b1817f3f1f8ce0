package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rustyeddy/accountmanager/journal"
	"github.com/rustyeddy/accountmanager/report"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Read back a local workbook",
	Long: `Print the rows written to a SQLite or CSV workbook.

Examples:
  accountmanager journal rows Balances --config local.yaml
  accountmanager journal rows Trades`,
}

var journalRowsCmd = &cobra.Command{
	Use:   "rows <worksheet>",
	Short: "List the rows of a worksheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRows,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRowsCmd)
}

func runJournalRows(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Sheet.Type != "sqlite" && cfg.Sheet.Type != "csv" {
		return fmt.Errorf("journal rows needs a sqlite or csv sheet, have %q", cfg.Sheet.Type)
	}

	sheet, err := openSheet(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer sheet.Close()

	reader, ok := sheet.(rowReader)
	if !ok {
		return fmt.Errorf("%s sheet cannot list rows", cfg.Sheet.Type)
	}
	recs, err := reader.Rows(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printRecords(cmd.OutOrStdout(), recs)
	return nil
}

// printRecords renders records as a table headed by row number and
// column letters, padding short rows.
func printRecords(w io.Writer, recs []journal.Record) {
	width := 0
	for _, r := range recs {
		width = max(width, len(r.Values))
	}

	header := []string{"Row"}
	for c := 1; c <= width; c++ {
		header = append(header, journal.ColName(c))
	}

	t := report.NewTable(w, header...)
	for _, r := range recs {
		line := make([]string, width+1)
		line[0] = strconv.Itoa(r.Row)
		copy(line[1:], r.Values)
		t.Append(line)
	}
	t.Render()
}
