package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/accountmanager/pkg/id"
)

// SQLiteSheet is a local workbook kept in a SQLite file, one cell per row
// of the cells table.
type SQLiteSheet struct {
	db *sql.DB
}

var _ Sheet = (*SQLiteSheet)(nil)

// NewSQLite opens (or creates) the workbook at path and makes sure the
// given worksheets exist.
func NewSQLite(path string, worksheets ...string) (*SQLiteSheet, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; SQLite would otherwise report SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteSheet{db: db}
	for _, ws := range worksheets {
		if err := s.AddWorksheet(context.Background(), ws); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// AddWorksheet creates the worksheet if it does not exist yet.
func (s *SQLiteSheet) AddWorksheet(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO worksheets (name, created_at) VALUES (?, ?)`,
		name, time.Now().UTC())
	return wrap("add worksheet", name, err)
}

func (s *SQLiteSheet) HasWorksheet(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM worksheets WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, wrap("has worksheet", name, err)
	}
	return n > 0, nil
}

func (s *SQLiteSheet) NextRow(ctx context.Context, worksheet string) (int, error) {
	if err := s.requireWorksheet(ctx, worksheet); err != nil {
		return 0, err
	}
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row), 0) FROM cells WHERE worksheet = ? AND col = 1`,
		worksheet).Scan(&last)
	if err != nil {
		return 0, wrap("next row", worksheet, err)
	}
	return last + 1, nil
}

func (s *SQLiteSheet) WriteRows(ctx context.Context, worksheet string, row int, rows [][]string) error {
	if err := s.requireWorksheet(ctx, worksheet); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("write rows", worksheet, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cells (worksheet, row, col, value, entry_id)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return wrap("write rows", worksheet, err)
	}
	defer stmt.Close()

	entry := id.New()
	for i, cells := range rows {
		for j, v := range cells {
			if _, err := stmt.ExecContext(ctx, worksheet, row+i, j+1, v, entry); err != nil {
				var serr sqlite3.Error
				if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
					err = fmt.Errorf("%w: %s", ErrRowWritten, Range{FromRow: row + i, ToRow: row + i, FromCol: j + 1, ToCol: j + 1}.A1())
				}
				return wrap("write rows", worksheet, err)
			}
		}
	}
	return wrap("write rows", worksheet, tx.Commit())
}

// ApplyFormat tags every written cell in r with f. Unwritten cells are left
// alone.
func (s *SQLiteSheet) ApplyFormat(ctx context.Context, worksheet string, r Range, f Format) error {
	if err := s.requireWorksheet(ctx, worksheet); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE cells SET format = ?
		WHERE worksheet = ? AND row BETWEEN ? AND ? AND col BETWEEN ? AND ?`,
		string(f), worksheet, r.FromRow, r.ToRow, r.FromCol, r.ToCol)
	return wrap("apply format", worksheet, err)
}

// Worksheets lists the worksheet names in creation order.
func (s *SQLiteSheet) Worksheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM worksheets ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Rows reads back every written row of worksheet in row order.
func (s *SQLiteSheet) Rows(ctx context.Context, worksheet string) ([]Record, error) {
	if err := s.requireWorksheet(ctx, worksheet); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT row, col, value, format
		FROM cells
		WHERE worksheet = ?
		ORDER BY row ASC, col ASC`, worksheet)
	if err != nil {
		return nil, wrap("rows", worksheet, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r, c          int
			value, format string
		)
		if err := rows.Scan(&r, &c, &value, &format); err != nil {
			return nil, wrap("rows", worksheet, err)
		}
		if len(out) == 0 || out[len(out)-1].Row != r {
			out = append(out, Record{Row: r})
		}
		rec := &out[len(out)-1]
		for len(rec.Values) < c {
			rec.Values = append(rec.Values, "")
			rec.Formats = append(rec.Formats, "")
		}
		rec.Values[c-1] = value
		rec.Formats[c-1] = Format(format)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows", worksheet, err)
	}
	return out, nil
}

func (s *SQLiteSheet) requireWorksheet(ctx context.Context, name string) error {
	ok, err := s.HasWorksheet(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return wrap("lookup", name, ErrNoWorksheet)
	}
	return nil
}

func (s *SQLiteSheet) Close() error {
	return s.db.Close()
}
