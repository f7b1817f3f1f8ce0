package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Format is a spreadsheet number format applied to a range of cells.
type Format string

const (
	FormatDateTime Format = "DATE_TIME"
	FormatCurrency Format = "CURRENCY"
)

var (
	ErrNoWorksheet = errors.New("worksheet not found")
	ErrRowWritten  = errors.New("row already written")
)

// Sheet is an append-only spreadsheet. Rows and columns are 1-based.
type Sheet interface {
	HasWorksheet(ctx context.Context, name string) (bool, error)
	// NextRow returns the first unused row, judged by column A.
	NextRow(ctx context.Context, worksheet string) (int, error)
	// WriteRows writes rows starting at row, column A. Existing cells are
	// never overwritten.
	WriteRows(ctx context.Context, worksheet string, row int, rows [][]string) error
	ApplyFormat(ctx context.Context, worksheet string, r Range, f Format) error
	Close() error
}

// Range is a rectangular block of cells, inclusive on both ends.
type Range struct {
	FromRow, ToRow int
	FromCol, ToCol int
}

// Cols builds a range over columns from..to (letters) and rows first..last.
func Cols(from, to string, first, last int) Range {
	return Range{FromRow: first, ToRow: last, FromCol: ColIndex(from), ToCol: ColIndex(to)}
}

// A1 renders the range in A1 notation, collapsing single cells.
func (r Range) A1() string {
	start := fmt.Sprintf("%s%d", ColName(r.FromCol), r.FromRow)
	end := fmt.Sprintf("%s%d", ColName(r.ToCol), r.ToRow)
	if start == end {
		return start
	}
	return start + ":" + end
}

// ColName converts a 1-based column index to letters: 1 -> A, 27 -> AA.
func ColName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// ColIndex converts column letters to a 1-based index.
func ColIndex(name string) int {
	n := 0
	for _, c := range strings.ToUpper(name) {
		if c < 'A' || c > 'Z' {
			return 0
		}
		n = n*26 + int(c-'A'+1)
	}
	return n
}

// Record is one stored row as read back from a local workbook.
type Record struct {
	Row     int
	Values  []string
	Formats []Format
}
