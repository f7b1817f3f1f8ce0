package journal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheet writes to one Google spreadsheet through the Sheets v4 API.
type GoogleSheet struct {
	svc           *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ Sheet = (*GoogleSheet)(nil)

// NewGoogleSheet connects to the spreadsheet. credentialsFile must be a
// service account key or an authorized-user file (as written by
// `gcloud auth application-default login`); an installed-app OAuth client
// secret is rejected. Without one, application default credentials are
// used. Extra options (endpoint, HTTP client) are passed through.
func NewGoogleSheet(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*GoogleSheet, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: missing spreadsheet id")
	}
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}

	g := &GoogleSheet{svc: svc, spreadsheetID: spreadsheetID}
	if err := g.refresh(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GoogleSheet) refresh(ctx context.Context) error {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return wrap("open spreadsheet", g.spreadsheetID, err)
	}

	ids := make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		ids[sh.Properties.Title] = sh.Properties.SheetId
	}

	g.mu.Lock()
	g.sheetIDs = ids
	g.mu.Unlock()
	return nil
}

func (g *GoogleSheet) sheetID(name string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.sheetIDs[name]
	return id, ok
}

func (g *GoogleSheet) HasWorksheet(ctx context.Context, name string) (bool, error) {
	if _, ok := g.sheetID(name); ok {
		return true, nil
	}
	if err := g.refresh(ctx); err != nil {
		return false, err
	}
	_, ok := g.sheetID(name)
	return ok, nil
}

func (g *GoogleSheet) NextRow(ctx context.Context, worksheet string) (int, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quoteSheet(worksheet)+"!A:A").
		MajorDimension("ROWS").Context(ctx).Do()
	if err != nil {
		return 0, wrap("next row", worksheet, err)
	}
	return len(resp.Values) + 1, nil
}

func (g *GoogleSheet) WriteRows(ctx context.Context, worksheet string, row int, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	width := 0
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
		vals := make([]interface{}, len(r))
		for i, v := range r {
			vals[i] = v
		}
		values = append(values, vals)
	}

	rng := Range{FromRow: row, ToRow: row + len(rows) - 1, FromCol: 1, ToCol: width}
	vr := &sheets.ValueRange{
		Range:          quoteSheet(worksheet) + "!" + rng.A1(),
		MajorDimension: "ROWS",
		Values:         values,
	}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, vr.Range, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return wrap("write rows", worksheet, err)
}

func (g *GoogleSheet) ApplyFormat(ctx context.Context, worksheet string, r Range, f Format) error {
	sheetID, ok := g.sheetID(worksheet)
	if !ok {
		return wrap("apply format", worksheet, ErrNoWorksheet)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(r.FromRow - 1),
					EndRowIndex:      int64(r.ToRow),
					StartColumnIndex: int64(r.FromCol - 1),
					EndColumnIndex:   int64(r.ToCol),
					ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{Type: string(f)},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		}},
	}
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return wrap("apply format", worksheet, err)
}

func (g *GoogleSheet) Close() error { return nil }

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
