package stock

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type categoryAcc struct {
	rows     []Row
	products map[string]struct{}
	qty      decimal.Decimal
}

func (a *categoryAcc) add(r Row) {
	if a.products == nil {
		a.products = map[string]struct{}{}
	}
	a.rows = append(a.rows, r)
	a.products[r.Product] = struct{}{}
	a.qty = a.qty.Add(decimal.NewFromFloat(r.AvailableQty))
}

func (a *categoryAcc) breakdown() CategoryBreakdown {
	rows := a.rows
	if rows == nil {
		rows = []Row{}
	}
	sortByGRDateDesc(rows)
	return CategoryBreakdown{Rows: rows, Count: len(a.products), Qty: a.qty.InexactFloat64()}
}

type productKey struct {
	product  string
	category Category
}

// Categorize splits the CROD rows of one warehouse and one bucket into
// Ready to Dispatch, Quality and Blocked. Rows with an unmapped stock type are dropped.
func Categorize(t *Table, warehouse string, bucket Bucket, ref time.Time) CategorySummary {
	var (
		full  = []Row{}
		accs  = map[Category]*categoryAcc{}
		byKey = map[productKey]decimal.Decimal{}
	)
	for _, c := range Categories {
		accs[c] = &categoryAcc{}
	}

	for _, r := range t.rows {
		if r.Warehouse != warehouse || r.StorageBin != BinCROD {
			continue
		}
		if b, ok := rowBucket(r, ref); !ok || b != bucket {
			continue
		}
		c := CategoryOf(r.StockType)
		if c == CategoryUnknown {
			continue
		}
		full = append(full, r)
		accs[c].add(r)
		k := productKey{product: r.Product, category: c}
		byKey[k] = byKey[k].Add(decimal.NewFromFloat(r.AvailableQty))
	}

	sortByGRDateDesc(full)
	return CategorySummary{
		Warehouse:   warehouse,
		Bucket:      bucket,
		FullRows:    full,
		SummaryRows: summaryRows(byKey),
		Ready:       accs[CategoryReady].breakdown(),
		Quality:     accs[CategoryQuality].breakdown(),
		Blocked:     accs[CategoryBlocked].breakdown(),
	}
}

func summaryRows(byKey map[productKey]decimal.Decimal) []SummaryRow {
	out := make([]SummaryRow, 0, len(byKey))
	for k, qty := range byKey {
		out = append(out, SummaryRow{Product: k.product, Category: k.category, Qty: qty.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// sortByGRDateDesc orders newest first; invalid dates go last.
func sortByGRDateDesc(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.GRDateInvalid != b.GRDateInvalid {
			return !a.GRDateInvalid
		}
		return a.GRDate.After(b.GRDate)
	})
}
