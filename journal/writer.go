package journal

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/rustyeddy/accountmanager/report"
)

// TradesHeader is written to row 1 of an empty trades worksheet.
var TradesHeader = []string{"Order ID", "Entered Time", "Fill Time", "Quantity", "Symbol", "Strikes", "Price"}

// Writer lays balance and trade rows out on a Sheet. Writes to the same
// worksheet are serialized so concurrent appends never race for a row.
type Writer struct {
	sheet    Sheet
	balances string
	trades   string
	loc      *time.Location

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriter writes balances and trades to the named worksheets. Balance
// timestamps are rendered in loc (UTC when nil).
func NewWriter(sheet Sheet, balances, trades string, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{
		sheet:    sheet,
		balances: balances,
		trades:   trades,
		loc:      loc,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (w *Writer) lock(worksheet string) func() {
	w.mu.Lock()
	l, ok := w.locks[worksheet]
	if !ok {
		l = &sync.Mutex{}
		w.locks[worksheet] = l
	}
	w.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Check verifies both worksheets exist.
func (w *Writer) Check(ctx context.Context) error {
	for _, ws := range []string{w.balances, w.trades} {
		ok, err := w.sheet.HasWorksheet(ctx, ws)
		if err != nil {
			return err
		}
		if !ok {
			return wrap("check", ws, ErrNoWorksheet)
		}
	}
	return nil
}

// AppendBalance writes one timestamp/NLV/BP row and returns its row number.
func (w *Writer) AppendBalance(ctx context.Context, at time.Time, b broker.Balances) (int, error) {
	defer w.lock(w.balances)()

	row, err := w.sheet.NextRow(ctx, w.balances)
	if err != nil {
		return 0, err
	}

	cells := []string{
		report.SheetTime(at.In(w.loc)),
		b.LiquidationValue.String(),
		b.BuyingPower.String(),
	}
	if err := w.sheet.WriteRows(ctx, w.balances, row, [][]string{cells}); err != nil {
		return 0, err
	}

	if err := w.sheet.ApplyFormat(ctx, w.balances, Cols("A", "A", row, row), FormatDateTime); err != nil {
		return row, err
	}
	if err := w.sheet.ApplyFormat(ctx, w.balances, Cols("B", "C", row, row), FormatCurrency); err != nil {
		return row, err
	}
	return row, nil
}

// AppendTrades writes the rows below the last used row of the trades
// worksheet, adding the header first when the worksheet is empty. It
// returns the number of rows written.
func (w *Writer) AppendTrades(ctx context.Context, rows []report.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	defer w.lock(w.trades)()

	next, err := w.sheet.NextRow(ctx, w.trades)
	if err != nil {
		return 0, err
	}
	if next == 1 {
		if err := w.sheet.WriteRows(ctx, w.trades, 1, [][]string{TradesHeader}); err != nil {
			return 0, fmt.Errorf("write trades header: %w", err)
		}
		next = 2
	}

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{
			r.OrderID,
			report.SheetTime(r.OpenedAt),
			report.SheetTime(r.FilledAt),
			strconv.FormatInt(r.Quantity, 10),
			r.Underlying,
			r.Strikes,
			r.Price.String(),
		})
	}
	if err := w.sheet.WriteRows(ctx, w.trades, next, cells); err != nil {
		return 0, err
	}

	last := next + len(rows) - 1
	if err := w.sheet.ApplyFormat(ctx, w.trades, Cols("B", "C", next, last), FormatDateTime); err != nil {
		return len(rows), err
	}
	if err := w.sheet.ApplyFormat(ctx, w.trades, Cols("G", "G", next, last), FormatCurrency); err != nil {
		return len(rows), err
	}
	return len(rows), nil
}
