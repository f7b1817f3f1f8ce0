package report

import (
	"fmt"
	"time"
)

// SheetTime renders t the way the spreadsheet parses a DATE_TIME cell:
// M/D/YYYY, H:MM:SS with no leading zeros on month, day or hour.
func SheetTime(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d, %d:%02d:%02d",
		int(t.Month()), t.Day(), t.Year(), t.Hour(), t.Minute(), t.Second())
}

// DisplayDate is the console table date, MM/DD/YYYY.
func DisplayDate(t time.Time) string {
	return t.Format("01/02/2006")
}
