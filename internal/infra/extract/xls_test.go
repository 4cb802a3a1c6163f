package extract

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testdata/stock.xls is a BIFF8 workbook with one sheet: a date formatted
// RK cell, a plain numeric serial, DD.MM.YYYY text and free text in GR Date.
func TestLoad_XLS(t *testing.T) {
	data, err := os.ReadFile("testdata/stock.xls")
	require.NoError(t, err)

	table, err := newLoader().Load(context.Background(), "stock.xls", data)
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	rows := table.Rows()
	assert.Equal(t, "CHKO", rows[0].Warehouse)
	assert.Equal(t, "CROD", rows[0].StorageBin)
	assert.Equal(t, "Widget", rows[0].Description)
	assert.Equal(t, 10.0, rows[0].AvailableQty)
	assert.Equal(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC), rows[0].GRDate)

	assert.Equal(t, 2.5, rows[1].AvailableQty)
	assert.Equal(t, time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC), rows[1].GRDate)

	assert.Equal(t, 4.0, rows[2].AvailableQty)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), rows[2].GRDate)

	assert.True(t, rows[3].GRDateInvalid)
	assert.Equal(t, "soon", rows[3].GRDateRaw)
	assert.Equal(t, "HU4", rows[3].HandlingUnit)
}

func TestLoad_XLSNamedSheetFallback(t *testing.T) {
	data, err := os.ReadFile("testdata/stock.xls")
	require.NoError(t, err)

	table, err := NewLoader(nil, nil, "Stock").Load(context.Background(), "stock.xls", data)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
}

func TestXLSDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"blank", "  ", nil},
		{"text date", "24.06.2025", "24.06.2025"},
		{"unpadded text date", "5.6.2025", "5.6.2025"},
		{"custom date format", "2025-06-24T00:00:00Z", time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)},
		{"iso without zone", "2025-06-24T00:00:00", time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)},
		{"serial", "45832", time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)},
		{"built-in format loses the day", "2025.06", "2025.06"},
		{"text", "soon", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, xlsDate(tt.raw))
		})
	}
}

func TestTrimTrailingBlank(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b"}, trimTrailingBlank([]string{"a", "", "b", " ", ""}))
	assert.Empty(t, trimTrailingBlank([]string{"", ""}))
}
