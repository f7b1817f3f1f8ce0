package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWorksheets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	s, err := NewCSV(dir, "Balances", "Trades")
	require.NoError(t, err)

	for _, name := range []string{"Balances", "Trades"} {
		ok, err := s.HasWorksheet(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
		assert.FileExists(t, filepath.Join(dir, name+".csv"))
	}

	ok, err := s.HasWorksheet(ctx, "Positions")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.NextRow(ctx, "Positions")
	assert.ErrorIs(t, err, ErrNoWorksheet)
	assert.ErrorIs(t, s.ApplyFormat(ctx, "Positions", Cols("A", "A", 1, 1), FormatDateTime), ErrNoWorksheet)
}

func TestCSVAppend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	s, err := NewCSV(dir, "Trades")
	require.NoError(t, err)

	row, err := s.NextRow(ctx, "Trades")
	require.NoError(t, err)
	assert.Equal(t, 1, row)

	require.NoError(t, s.WriteRows(ctx, "Trades", 1, [][]string{TradesHeader}))
	require.NoError(t, s.WriteRows(ctx, "Trades", 2, [][]string{
		{"1", "3/12/2024, 14:31:05", "3/12/2024, 14:31:06", "2", "$SPX.X", "5100/5080", "1.35"},
	}))
	require.NoError(t, s.ApplyFormat(ctx, "Trades", Cols("G", "G", 2, 2), FormatCurrency))

	row, err = s.NextRow(ctx, "Trades")
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	data, err := os.ReadFile(filepath.Join(dir, "Trades.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"3/12/2024, 14:31:05"`)

	recs, err := s.Rows(ctx, "Trades")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, TradesHeader, recs[0].Values)
	assert.Equal(t, "5100/5080", recs[1].Values[5])
}

func TestCSVRejectsOutOfOrderRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := NewCSV(t.TempDir(), "Balances")
	require.NoError(t, err)
	require.NoError(t, s.WriteRows(ctx, "Balances", 1, [][]string{{"a", "1", "2"}}))

	assert.ErrorIs(t, s.WriteRows(ctx, "Balances", 1, [][]string{{"b"}}), ErrRowWritten)
	assert.Error(t, s.WriteRows(ctx, "Balances", 5, [][]string{{"b"}}))

	recs, err := s.Rows(ctx, "Balances")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCSVKeepsExistingFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Balances.csv"), []byte("a,1,2\nb,3,4\n"), 0o644))

	s, err := NewCSV(dir, "Balances")
	require.NoError(t, err)

	row, err := s.NextRow(ctx, "Balances")
	require.NoError(t, err)
	assert.Equal(t, 3, row)
}
