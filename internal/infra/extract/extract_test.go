package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/Spok95/crod-stock-bot/internal/infra/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const csvHeader = "EWM WH,Storage BIN,Product,Material Description,Available Qty,Stock Type,GR Date,Handling Unit,Extra\n"

func newLoader() *Loader {
	return NewLoader(nil, metrics.New(prometheus.NewRegistry()), "")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"stock.csv", FormatCSV, false},
		{"STOCK.XLSX", FormatXLSX, false},
		{"export.xls", FormatXLS, false},
		{"data.parquet", FormatParquet, false},
		{"data.PQ", FormatParquet, false},
		{"data.json", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				var formatErr *stock.SourceFormatError
				require.ErrorAs(t, err, &formatErr)
				assert.True(t, errors.Is(err, stock.ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_CSV(t *testing.T) {
	data := "\xEF\xBB\xBF" + csvHeader +
		" CHKO , CROD ,FG1,Widget,10,DU,24.06.2025,HU1,x\n" +
		"CHKI,CROD,FG2,Gadget,abc,DQ,not a date,HU2,y\n" +
		"\n" +
		"CHKI,CROD,FG3,Short row\n"

	table, err := newLoader().Load(context.Background(), "stock.csv", []byte(data))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	rows := table.Rows()
	assert.Equal(t, "CHKO", rows[0].Warehouse)
	assert.Equal(t, "CROD", rows[0].StorageBin)
	assert.Equal(t, 10.0, rows[0].AvailableQty)
	assert.Equal(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC), rows[0].GRDate)

	assert.Equal(t, 0.0, rows[1].AvailableQty)
	assert.True(t, rows[1].GRDateInvalid)

	assert.True(t, rows[2].GRDateInvalid)
	assert.Equal(t, "", rows[2].StockType)

	inv := table.InvalidDates()
	assert.Equal(t, 2, inv.Count)
	assert.Equal(t, []string{"not a date", ""}, inv.Sample)
}

func TestLoad_CSVUnpaddedDates(t *testing.T) {
	data := csvHeader +
		"CHKO,CROD,FG1,Widget,1,DU,1.2.2025,HU1,x\n" +
		"CHKO,CROD,FG2,Widget,1,DU,24.6.2025,HU2,x\n" +
		"CHKO,CROD,FG3,Widget,1,DU,5.06.2025,HU3,x\n"

	table, err := newLoader().Load(context.Background(), "stock.csv", []byte(data))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.Zero(t, table.InvalidDates().Count)

	rows := table.Rows()
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), rows[0].GRDate)
	assert.Equal(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC), rows[1].GRDate)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), rows[2].GRDate)
}

func TestLoad_SchemaError(t *testing.T) {
	data := "EWM WH,Storage BIN,Product,Available Qty\nCHKO,CROD,FG1,1\n"

	table, err := newLoader().Load(context.Background(), "stock.csv", []byte(data))
	assert.Nil(t, table)

	var schemaErr *stock.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{stock.FieldDescription, stock.FieldStockType, stock.FieldGRDate, stock.FieldHandlingUnit}, schemaErr.Missing)
}

func TestLoad_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"unsupported extension", "stock.ods", []byte("PK")},
		{"truncated parquet", "stock.parquet", []byte("PAR1")},
		{"parquet without footer", "stock.parquet", []byte("PAR1 some bytes that are not a footer PAR1")},
		{"corrupt workbook", "stock.xlsx", []byte("definitely not a zip")},
		{"truncated xls", "stock.xls", []byte{0xD0, 0xCF, 0x11, 0xE0}},
		{"xls that is not a compound file", "stock.xls", []byte("EWM WH,Storage BIN\nCHKO,CROD\n")},
		{"empty csv", "stock.csv", nil},
		{"broken quoting", "stock.csv", []byte(csvHeader + "\"CHKO,CROD\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := newLoader().Load(context.Background(), tt.file, tt.data)
			assert.Nil(t, table)

			var formatErr *stock.SourceFormatError
			require.ErrorAs(t, err, &formatErr)
			assert.NotEmpty(t, formatErr.Error())
		})
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLoader().Load(ctx, "stock.csv", []byte(csvHeader))
	assert.ErrorIs(t, err, context.Canceled)
}

func workbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func headerRow() []any {
	out := make([]any, len(stock.RequiredFields))
	for i, f := range stock.RequiredFields {
		out[i] = f
	}
	return out
}

func TestLoad_XLSX(t *testing.T) {
	native := time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)
	data := workbook(t, "Sheet1", [][]any{
		headerRow(),
		{"CHKO", "CROD", "FG1", "Widget", 12.5, "DU", "24.06.2025", "HU1"},
		{"CHKI", "CROD", 100200, "Gadget", 3, "DB", native, "HU2"},
		{"CHKI", "CROD", "FG3", "Thing", "x", "EQ", "2025/06/01", "HU3"},
	})

	table, err := newLoader().Load(context.Background(), "stock.xlsx", data)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	rows := table.Rows()
	assert.Equal(t, 12.5, rows[0].AvailableQty)
	assert.Equal(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC), rows[0].GRDate)

	assert.Equal(t, "100200", rows[1].Product)
	assert.False(t, rows[1].GRDateInvalid)
	assert.Equal(t, native, rows[1].GRDate)

	assert.Equal(t, 0.0, rows[2].AvailableQty)
	assert.True(t, rows[2].GRDateInvalid)
	assert.Equal(t, "2025/06/01", rows[2].GRDateRaw)
}

func TestLoad_XLSXSheetFallback(t *testing.T) {
	data := workbook(t, "Stock", [][]any{
		headerRow(),
		{"CHKO", "CROD", "FG1", "Widget", 1, "DU", "24.06.2025", "HU1"},
	})

	table, err := NewLoader(nil, nil, "Sheet1").Load(context.Background(), "stock.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestLoad_XLSXUnpaddedTextDate(t *testing.T) {
	data := workbook(t, "Sheet1", [][]any{
		headerRow(),
		{"CHKO", "CROD", "FG1", "Widget", 1, "DU", "5.6.2025", "HU1"},
	})

	table, err := newLoader().Load(context.Background(), "stock.xlsx", data)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.False(t, table.Rows()[0].GRDateInvalid)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), table.Rows()[0].GRDate)
}

func TestParseISODate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2025-06-24T00:00:00Z", time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC), true},
		{"2025-06-24T08:30:00+05:00", time.Date(2025, 6, 24, 8, 30, 0, 0, time.FixedZone("", 5*3600)), true},
		{"2025-06-24T08:30:00", time.Date(2025, 6, 24, 8, 30, 0, 0, time.UTC), true},
		{"2025-06-24", time.Time{}, false},
		{"24.06.2025", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseISODate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), got)
			}
		})
	}
}

func TestLoad_XLSXMissingColumn(t *testing.T) {
	header := headerRow()[:7]
	data := workbook(t, "Sheet1", [][]any{header, {"CHKO", "CROD", "FG1", "Widget", 1, "DU", "24.06.2025"}})

	_, err := newLoader().Load(context.Background(), "stock.xlsx", data)

	var schemaErr *stock.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{stock.FieldHandlingUnit}, schemaErr.Missing)
	assert.True(t, strings.Contains(err.Error(), stock.FieldHandlingUnit))
}
