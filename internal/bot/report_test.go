package bot

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var ref = time.Date(2025, 6, 24, 15, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2025, 6, 24+offset, 0, 0, 0, 0, time.UTC)
}

func row(wh, product, code string, qty float64, grDate time.Time) stock.Row {
	return stock.Row{
		Warehouse:    wh,
		StorageBin:   stock.BinCROD,
		Product:      product,
		Description:  "Desc " + product,
		AvailableQty: qty,
		StockType:    code,
		GRDate:       grDate,
		HandlingUnit: "HU-" + product,
	}
}

func sampleTable() *stock.Table {
	return stock.NewTable([]stock.Row{
		row("CHKO", "FG1", "DU", 10, day(0)),
		row("CHKO", "FG2", "DQ", 2.5, day(0)),
		row("CHKO", "FG3", "EU", 4, day(-1)),
		row("CHKI", "FG4", "DB", 7, day(-5)),
		{Warehouse: "CHKO", StorageBin: stock.BinCROD, Product: "FG5", StockType: "DU",
			AvailableQty: 1, GRDateInvalid: true, GRDateRaw: "31.02.2025"},
	})
}

func TestBucketTitle(t *testing.T) {
	assert.Equal(t, "Current Stock (June 24, 2025)", bucketTitle(stock.BucketCurrent, ref))
	assert.Equal(t, "Yesterday's Stock (June 23, 2025)", bucketTitle(stock.BucketYesterday, ref))
	assert.Equal(t, "Previous Stock (Before June 23, 2025)", bucketTitle(stock.BucketPrevious, ref))
}

func TestKPIText(t *testing.T) {
	text := kpiText(stock.Summarize(sampleTable(), ref), ref)

	assert.Contains(t, text, "CHKO Current Stock (CROD, June 24, 2025): 12.50 NOS")
	assert.Contains(t, text, "CHKO Yesterday's Stock (CROD, June 23, 2025): 4.00 NOS")
	assert.Contains(t, text, "CHKO Previous Stock (CROD): 0.00 NOS")
	assert.Contains(t, text, "CHKI Current Stock (CROD, June 24, 2025): 0.00 NOS")
	assert.Contains(t, text, "CHKI Previous Stock (CROD): 7.00 NOS")
}

func TestInvalidDatesText(t *testing.T) {
	assert.Empty(t, invalidDatesText(stock.InvalidDates{}))

	text := invalidDatesText(stock.InvalidDates{
		Count:  7,
		Sample: []string{"a", "b", "c", "d", "e", "f", "g"},
	})
	assert.Contains(t, text, "Found 7 rows with invalid GR Date values")
	assert.Contains(t, text, `["a", "b", "c", "d", "e"]`)
	assert.NotContains(t, text, `"f"`)
	assert.Contains(t, text, "may not appear in Current/Yesterday's/Previous Stock")
}

func TestLoadedText(t *testing.T) {
	table := sampleTable()
	text := loadedText("stock.xlsx", table, stock.Summarize(table, ref), ref)

	assert.True(t, strings.HasPrefix(text, "✅ Data loaded successfully: stock.xlsx (5 rows)"))
	assert.Contains(t, text, "Found 1 rows with invalid GR Date values")
	assert.Contains(t, text, "📦 Stock summary (CROD)")
}

func TestCategoryText(t *testing.T) {
	cs := stock.Categorize(sampleTable(), "CHKO", stock.BucketCurrent, ref)
	text := categoryText(cs, ref, 1)

	assert.Contains(t, text, "CHKO · Current Stock (June 24, 2025)")
	assert.Contains(t, text, "• Ready to Dispatch: 1 FG codes (10.00 NOS)")
	assert.Contains(t, text, "• Quality: 1 FG codes (2.50 NOS)")
	assert.Contains(t, text, "• Blocked: 0 FG codes (0.00 NOS)")
	assert.Contains(t, text, "1 of 2")
	assert.Contains(t, text, "No Blocked FG codes in CHKO for current stock.")
	assert.NotContains(t, text, "No Quality FG codes")
}

func TestCategoryText_Empty(t *testing.T) {
	cs := stock.Categorize(sampleTable(), "CHKI", stock.BucketCurrent, ref)
	text := categoryText(cs, ref, 10)

	assert.NotContains(t, text, "Stock details")
	for _, c := range stock.Categories {
		assert.Contains(t, text, emptyCategoryText(c, "CHKI", stock.BucketCurrent))
	}
}

func TestFormatGRDate(t *testing.T) {
	assert.Equal(t, "24.06.2025", formatGRDate(row("CHKO", "FG1", "DU", 1, day(0))))
	assert.Equal(t, "garbage", formatGRDate(stock.Row{GRDateInvalid: true, GRDateRaw: "garbage"}))
}

func TestTodayText(t *testing.T) {
	assert.Contains(t, todayText(ref, true), "June 24, 2025 (pinned in configuration)")
	assert.Contains(t, todayText(ref, false), "Yesterday: June 23, 2025")
}

func TestParseView(t *testing.T) {
	wh, b, err := parseView("cat:CHKI:previous")
	require.NoError(t, err)
	assert.Equal(t, "CHKI", wh)
	assert.Equal(t, stock.BucketPrevious, b)

	for _, bad := range []string{"cat:CHKX:current", "cat:CHKO:tomorrow", "cat:CHKO", "xls:CHKO:current:x"} {
		_, _, err := parseView(bad)
		assert.Error(t, err, bad)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))
	long := strings.Repeat("я", maxMessageLen+10)
	assert.Len(t, []rune(truncate(long)), maxMessageLen)
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestCategoryWorkbook(t *testing.T) {
	cs := stock.Categorize(sampleTable(), "CHKO", stock.BucketCurrent, ref)
	data, err := categoryWorkbook(cs)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t, []string{detailSheet, "Ready to Dispatch", "Quality", chartDataSheet}, f.GetSheetList())

	rows, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"FG Code", "Material Description", "Quantity", "Handling Number", "GR Date"}, rows[0])
	assert.Equal(t, "24.06.2025", rows[1][4])

	rows, err = f.GetRows("Quality")
	require.NoError(t, err)
	assert.Equal(t, []string{"FG Code", "Material Description", "Quantity", "Stock Type", "GR Date"}, rows[0])
	assert.Equal(t, []string{"FG2", "Desc FG2", "2.5", "DQ", "24.06.2025"}, rows[1])

	rows, err = f.GetRows(chartDataSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"FG Code", "Category", "Quantity"}, rows[0])
	assert.Len(t, rows, 3)
}

func TestFullReport(t *testing.T) {
	table := sampleTable()
	memo := stock.NewMemo(0, nil)

	data, err := fullReport(context.Background(), memo, "digest", table, ref)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	sheets := f.GetSheetList()
	require.Len(t, sheets, 7)
	assert.Equal(t, summarySheet, sheets[0])
	assert.Equal(t, "CHKO Current Stock", sheets[1])
	assert.Equal(t, "CHKI Previous Stock", sheets[6])

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"CHKO", "Current Stock (June 24, 2025)", "12.5"}, rows[1])

	rows, err = f.GetRows("CHKI Previous Stock")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "FG4", rows[1][0])

	// one summary plus six breakdowns
	assert.Equal(t, 7, memo.Len())
}

func TestFullReport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fullReport(ctx, stock.NewMemo(0, nil), "digest", sampleTable(), ref)
	assert.ErrorIs(t, err, context.Canceled)
}
