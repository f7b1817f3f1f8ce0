package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/accountmanager/broker/brokerobs"
	"github.com/rustyeddy/accountmanager/report"
	"github.com/rustyeddy/accountmanager/secrets"
	"github.com/spf13/cobra"
)

var hoursCmd = &cobra.Command{
	Use:   "hours [YYYY-MM-DD]",
	Short: "Show the next market sessions",
	Long: `Resolve the next sessions, starting from the given day in the
configured timezone. Without a day, sessions that have not closed yet are
shown, starting today.

Examples:
  accountmanager hours
  accountmanager hours 2024-12-24 --count 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHours,
}

var hoursCount int

func init() {
	rootCmd.AddCommand(hoursCmd)
	hoursCmd.Flags().IntVarP(&hoursCount, "count", "n", 1, "number of sessions to show")
}

func runHours(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := cfg.Poll.Location()
	if err != nil {
		return fmt.Errorf("poll.timezone: %w", err)
	}
	from := time.Now().In(loc)
	if len(args) == 1 {
		if from, err = time.ParseInLocation("2006-01-02", args[0], loc); err != nil {
			return fmt.Errorf("date: %w", err)
		}
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	b, err := newBroker(cfg, store, secrets.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout()), log)
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	resolver, err := newResolver(cfg, brokerobs.Wrap(b, log, nil))
	if err != nil {
		return err
	}
	if len(args) == 1 {
		// list the schedule as seen from the start of each searched day
		resolver.Now = func() time.Time { return from }
	}

	t := report.NewTable(cmd.OutOrStdout(), "Session", "Open", "Close")
	for i := 0; i < hoursCount; i++ {
		s, err := resolver.NextFrom(cmd.Context(), from)
		if err != nil {
			t.Render()
			return err
		}
		t.Append([]string{
			s.ID(),
			s.Open.In(loc).Format("Mon 2006-01-02 15:04 MST"),
			s.Close.In(loc).Format("15:04 MST"),
		})

		open := s.Open.In(loc)
		from = time.Date(open.Year(), open.Month(), open.Day()+1, 0, 0, 0, 0, loc)
	}
	t.Render()
	return nil
}
