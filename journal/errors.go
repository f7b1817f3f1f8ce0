package journal

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mattn/go-sqlite3"
	"google.golang.org/api/googleapi"
)

// Error is a failed sink operation on one worksheet.
type Error struct {
	Op        string
	Worksheet string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("journal %s %q: %v", e.Op, e.Worksheet, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports rate limiting, server-side failures and a busy database.
func (e *Error) Temporary() bool {
	var gerr *googleapi.Error
	if errors.As(e.Err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests ||
			gerr.Code == http.StatusRequestTimeout ||
			gerr.Code >= 500
	}
	var serr sqlite3.Error
	if errors.As(e.Err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

func wrap(op, worksheet string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Worksheet: worksheet, Err: err}
}
