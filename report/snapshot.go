package report

import (
	"errors"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rustyeddy/accountmanager/broker"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrZeroLiquidation is returned when utilization is asked of an account
// with no liquidation value.
var ErrZeroLiquidation = errors.New("net liquidation value is zero")

var hundred = decimal.NewFromInt(100)

// DisplayRow is one line of the console balance table.
type DisplayRow struct {
	Date          string
	NLV           string
	BP            string
	PLPercent     string
	BPUtilization string
}

// FormatSnapshot builds the display row for balances observed at now.
func FormatSnapshot(b broker.Balances, now time.Time) (DisplayRow, error) {
	util, err := Utilization(b.LiquidationValue, b.BuyingPower)
	if err != nil {
		return DisplayRow{}, err
	}
	return DisplayRow{
		Date:          DisplayDate(now),
		NLV:           Currency(b.LiquidationValue),
		BP:            Currency(b.BuyingPower),
		PLPercent:     "0",
		BPUtilization: util.StringFixed(1) + "%",
	}, nil
}

// Utilization is the share of liquidation value not available as buying
// power, in percent: 100 * (nlv - bp) / nlv.
func Utilization(nlv, bp decimal.Decimal) (decimal.Decimal, error) {
	if nlv.IsZero() {
		return decimal.Decimal{}, ErrZeroLiquidation
	}
	return nlv.Sub(bp).Mul(hundred).Div(nlv), nil
}

// Currency renders whole dollars with thousands separators, e.g. $100,000.
func Currency(d decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	n := d.Round(0).IntPart()
	if n < 0 {
		return p.Sprintf("-$%d", -n)
	}
	return p.Sprintf("$%d", n)
}

// SnapshotHeader names the columns of the console balance table.
var SnapshotHeader = []string{"Date", "NLV", "Buying Power", "P/L %", "BP Utilization"}

// PrintSnapshot writes the balance table as a boxed table.
func PrintSnapshot(w io.Writer, row DisplayRow) error {
	t := NewTable(w, SnapshotHeader...)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	t.Append([]string{row.Date, row.NLV, row.BP, row.PLPercent, row.BPUtilization})
	t.Render()
	return nil
}

// NewTable returns a boxed console table with the header kept as written.
func NewTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	if len(header) > 0 {
		t.SetHeader(header)
	}
	return t
}
