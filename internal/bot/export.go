package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const (
	detailSheet    = "Stock Details"
	chartDataSheet = "Chart Data"
	summarySheet   = "Summary"
)

var (
	detailHeader   = []any{"FG Code", "Material Description", "Quantity", "Handling Number", "GR Date"}
	categoryHeader = []any{"FG Code", "Material Description", "Quantity", "Stock Type", "GR Date"}
	chartHeader    = []any{"FG Code", "Category", "Quantity"}
)

func writeRows(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func detailRows(rows []stock.Row) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.Product, r.Description, r.AvailableQty, r.HandlingUnit, formatGRDate(r)})
	}
	return out
}

func categoryRows(rows []stock.Row) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.Product, r.Description, r.AvailableQty, r.StockType, formatGRDate(r)})
	}
	return out
}

func chartRows(rows []stock.SummaryRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.Product, string(r.Category), r.Qty})
	}
	return out
}

// newSheet adds a sheet, reusing the default one for the first call.
func newSheet(f *excelize.File, name string, first *bool) error {
	if *first {
		*first = false
		return f.SetSheetName(f.GetSheetName(0), name)
	}
	_, err := f.NewSheet(name)
	return err
}

func writeBuffer(f *excelize.File) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// categoryWorkbook exports one warehouse/bucket drill-down: the detail
// table, a sheet per non-empty category and the chart data.
func categoryWorkbook(cs stock.CategorySummary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := true
	if err := newSheet(f, detailSheet, &first); err != nil {
		return nil, err
	}
	if err := writeRows(f, detailSheet, detailHeader, detailRows(cs.FullRows)); err != nil {
		return nil, fmt.Errorf("write details: %w", err)
	}
	for _, c := range stock.Categories {
		br := cs.Breakdown(c)
		if len(br.Rows) == 0 {
			continue
		}
		if err := newSheet(f, string(c), &first); err != nil {
			return nil, err
		}
		if err := writeRows(f, string(c), categoryHeader, categoryRows(br.Rows)); err != nil {
			return nil, fmt.Errorf("write %s: %w", c, err)
		}
	}
	if err := newSheet(f, chartDataSheet, &first); err != nil {
		return nil, err
	}
	if err := writeRows(f, chartDataSheet, chartHeader, chartRows(cs.SummaryRows)); err != nil {
		return nil, fmt.Errorf("write chart data: %w", err)
	}
	return writeBuffer(f)
}

func viewSheetName(warehouse string, b stock.Bucket) string {
	return fmt.Sprintf("%s %s", warehouse, bucketLabel(b))
}

// fullReport computes every warehouse/bucket breakdown in parallel and
// writes them into one workbook behind a summary sheet.
func fullReport(ctx context.Context, memo *stock.Memo, digest string, t *stock.Table, ref time.Time) ([]byte, error) {
	type view struct {
		warehouse string
		bucket    stock.Bucket
	}
	var views []view
	for _, wh := range stock.TrackedWarehouses {
		for _, b := range stock.Buckets {
			views = append(views, view{wh, b})
		}
	}

	var sum stock.WarehouseSummary
	results := make([]stock.CategorySummary, len(views))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum = memo.Summarize(digest, t, ref)
		return gctx.Err()
	})
	for i, v := range views {
		i, v := i, v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = memo.Categorize(digest, t, v.warehouse, v.bucket, ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := true
	if err := newSheet(f, summarySheet, &first); err != nil {
		return nil, err
	}
	var summary [][]any
	for _, wh := range stock.TrackedWarehouses {
		totals := sum[wh]
		for _, b := range stock.Buckets {
			summary = append(summary, []any{wh, bucketTitle(b, ref), totals.Of(b)})
		}
	}
	if err := writeRows(f, summarySheet, []any{"Warehouse", "Stock", "Quantity (NOS)"}, summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	for i, v := range views {
		name := viewSheetName(v.warehouse, v.bucket)
		if err := newSheet(f, name, &first); err != nil {
			return nil, err
		}
		if err := writeRows(f, name, detailHeader, detailRows(results[i].FullRows)); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return writeBuffer(f)
}
