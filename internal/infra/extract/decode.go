package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatParquet Format = "parquet"
)

// DefaultSheet is read from workbooks unless configured otherwise.
const DefaultSheet = "Sheet1"

var (
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
	errNoHeader = errors.New("no header row")
)

// DetectFormat picks the decoder from the file extension.
func DetectFormat(fileName string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	}
	return "", &stock.SourceFormatError{
		Format: strings.TrimPrefix(ext, "."),
		Err:    fmt.Errorf("%w %q", stock.ErrUnsupportedFormat, ext),
	}
}

// Decode turns file content into raw records and the source header.
// Every failure is a *stock.SourceFormatError.
func Decode(format Format, data []byte, sheet string) ([]stock.Record, []string, error) {
	var (
		records []stock.Record
		header  []string
		err     error
	)
	switch format {
	case FormatCSV:
		records, header, err = decodeCSV(data)
	case FormatXLSX:
		records, header, err = decodeXLSX(data, sheet)
	case FormatXLS:
		records, header, err = decodeXLS(data, sheet)
	case FormatParquet:
		records, header, err = decodeParquet(data)
	default:
		err = fmt.Errorf("%w %q", stock.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, nil, &stock.SourceFormatError{Format: string(format), Err: err}
	}
	return records, header, nil
}

func decodeCSV(data []byte) ([]stock.Record, []string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return toRecords(rows, nil)
}

func decodeXLSX(data []byte, sheet string) ([]stock.Record, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	name, err := pickSheet(f, sheet)
	if err != nil {
		return nil, nil, err
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, err
	}
	return toRecords(rows, func(row, col int, column, raw string) any {
		if column != stock.FieldGRDate {
			return raw
		}
		return cellDate(f, name, row, col, raw)
	})
}

// pickSheet prefers the configured sheet and falls back to the first one.
func pickSheet(f *excelize.File, want string) (string, error) {
	if want == "" {
		want = DefaultSheet
	}
	if idx, err := f.GetSheetIndex(want); err == nil && idx >= 0 {
		return want, nil
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	return sheets[0], nil
}

// cellDate keeps DD.MM.YYYY text as is and turns numeric date cells into time.Time.
func cellDate(f *excelize.File, sheet string, row, col int, raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if isGRText(raw) {
		return raw
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raw
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return raw
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return t
		}
	}
	return serialDate(raw)
}

// isoDateLayouts are the renderings readers use for date typed cells.
var isoDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

func parseISODate(raw string) (time.Time, bool) {
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isGRText(raw string) bool {
	_, err := time.Parse(stock.GRDateParseLayout, raw)
	return err == nil
}

// serialDate converts an Excel serial day number; anything else stays raw.
func serialDate(raw string) any {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t
}

// recoverDecode turns a panic inside a third-party reader into an error.
func recoverDecode(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed file: %v", r)
	}
}

type cellFunc func(row, col int, column, raw string) any

// toRecords maps rows under the first (header) row to records. Blank cells are nil,
// blank rows are skipped.
func toRecords(rows [][]string, convert cellFunc) ([]stock.Record, []string, error) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, nil, errNoHeader
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	records := make([]stock.Record, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rec := make(stock.Record, len(header))
		for j, column := range header {
			if column == "" {
				continue
			}
			if j >= len(row) || strings.TrimSpace(row[j]) == "" {
				rec[column] = nil
				continue
			}
			if convert != nil {
				rec[column] = convert(i, j, column, row[j])
			} else {
				rec[column] = row[j]
			}
		}
		records = append(records, rec)
	}
	return records, header, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
