package extract

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/extrame/xls"
)

const (
	// maxXLSCols is the BIFF8 column limit.
	maxXLSCols = 256

	// xlsMonthLayout is how the reader renders cells with a built-in date
	// format; the day is lost.
	xlsMonthLayout = "2006.01"
)

var errNoWorkbook = errors.New("no Workbook stream in the compound file")

// decodeXLS reads a legacy Excel 97-2003 (BIFF) workbook.
func decodeXLS(data []byte, sheet string) (records []stock.Record, header []string, err error) {
	defer recoverDecode(&err)

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, nil, err
	}
	if wb == nil {
		return nil, nil, errNoWorkbook
	}
	ws := pickXLSSheet(wb, sheet)
	if ws == nil {
		return nil, nil, errors.New("workbook has no sheets")
	}
	return toRecords(xlsRows(ws), func(_, _ int, column, raw string) any {
		if column != stock.FieldGRDate {
			return raw
		}
		return xlsDate(raw)
	})
}

// pickXLSSheet prefers the configured sheet and falls back to the first one.
func pickXLSSheet(wb *xls.WorkBook, want string) *xls.WorkSheet {
	if want == "" {
		want = DefaultSheet
	}
	for i := 0; i < wb.NumSheets(); i++ {
		if ws := wb.GetSheet(i); ws != nil && ws.Name == want {
			return ws
		}
	}
	return wb.GetSheet(0)
}

// xlsRows flattens the sheet into a grid as wide as its first row.
func xlsRows(ws *xls.WorkSheet) [][]string {
	rows := make([][]string, 0, int(ws.MaxRow)+1)
	width := maxXLSCols
	for i := 0; i <= int(ws.MaxRow); i++ {
		cells := make([]string, 0, width)
		if row := sheetRow(ws, i); row != nil {
			for c := 0; c < width; c++ {
				cells = append(cells, row.Col(c))
			}
		}
		if i == 0 {
			cells = trimTrailingBlank(cells)
			width = len(cells)
		}
		rows = append(rows, cells)
	}
	return rows
}

// sheetRow is nil for rows the sheet does not define.
func sheetRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func trimTrailingBlank(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}

// xlsDate turns the reader's rendering of a GR Date cell into time.Time.
// Custom date formats arrive as RFC3339, unformatted numbers as the serial.
func xlsDate(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if isGRText(raw) {
		return raw
	}
	if t, ok := parseISODate(raw); ok {
		return t
	}
	if _, err := time.Parse(xlsMonthLayout, raw); err == nil {
		return raw
	}
	return serialDate(raw)
}
