package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// CSVSheet is a directory workbook: one <worksheet>.csv file per
// worksheet. CSV has no number formats, so ApplyFormat is a no-op.
type CSVSheet struct {
	dir string
	mu  sync.Mutex
}

var _ Sheet = (*CSVSheet)(nil)

func NewCSV(dir string, worksheets ...string) (*CSVSheet, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &CSVSheet{dir: dir}
	for _, ws := range worksheets {
		if err := s.AddWorksheet(ws); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *CSVSheet) path(worksheet string) string {
	return filepath.Join(s.dir, worksheet+".csv")
}

// AddWorksheet creates an empty worksheet file unless one exists.
func (s *CSVSheet) AddWorksheet(name string) error {
	f, err := os.OpenFile(s.path(name), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return wrap("add worksheet", name, err)
	}
	return f.Close()
}

func (s *CSVSheet) HasWorksheet(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, wrap("has worksheet", name, err)
	}
	return true, nil
}

func (s *CSVSheet) NextRow(_ context.Context, worksheet string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(worksheet)
	if err != nil {
		return 0, err
	}
	return len(recs) + 1, nil
}

// WriteRows appends rows. Only the next unused row may be written, since a
// CSV file cannot hold gaps or rewrite earlier lines in place.
func (s *CSVSheet) WriteRows(_ context.Context, worksheet string, row int, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(worksheet)
	if err != nil {
		return err
	}
	if next := len(recs) + 1; row != next {
		if row < next {
			return wrap("write rows", worksheet, fmt.Errorf("%w: row %d", ErrRowWritten, row))
		}
		return wrap("write rows", worksheet, fmt.Errorf("row %d leaves a gap after row %d", row, next-1))
	}

	f, err := os.OpenFile(s.path(worksheet), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return wrap("write rows", worksheet, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return wrap("write rows", worksheet, err)
	}
	return nil
}

func (s *CSVSheet) ApplyFormat(ctx context.Context, worksheet string, _ Range, _ Format) error {
	ok, err := s.HasWorksheet(ctx, worksheet)
	if err != nil {
		return err
	}
	if !ok {
		return wrap("apply format", worksheet, ErrNoWorksheet)
	}
	return nil
}

// Rows reads back every row of worksheet.
func (s *CSVSheet) Rows(_ context.Context, worksheet string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(worksheet)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(recs))
	for i, r := range recs {
		out = append(out, Record{Row: i + 1, Values: r})
	}
	return out, nil
}

func (s *CSVSheet) read(worksheet string) ([][]string, error) {
	f, err := os.Open(s.path(worksheet))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, wrap("read", worksheet, ErrNoWorksheet)
	}
	if err != nil {
		return nil, wrap("read", worksheet, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		return nil, wrap("read", worksheet, err)
	}
	return recs, nil
}

func (s *CSVSheet) Close() error { return nil }
