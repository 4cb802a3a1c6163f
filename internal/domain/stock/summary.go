package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

type bucketSums struct {
	current, yesterday, previous decimal.Decimal
}

func (s *bucketSums) add(b Bucket, qty decimal.Decimal) {
	switch b {
	case BucketCurrent:
		s.current = s.current.Add(qty)
	case BucketYesterday:
		s.yesterday = s.yesterday.Add(qty)
	case BucketPrevious:
		s.previous = s.previous.Add(qty)
	}
}

func (s bucketSums) totals() Totals {
	return Totals{
		Current:   s.current.InexactFloat64(),
		Yesterday: s.yesterday.InexactFloat64(),
		Previous:  s.previous.InexactFloat64(),
	}
}

// SummarizeAll sums available quantity of CROD rows per warehouse and bucket.
// Rows with an invalid GR date fall in no bucket.
func SummarizeAll(t *Table, ref time.Time) WarehouseSummary {
	sums := map[string]*bucketSums{}
	for _, r := range t.rows {
		if r.StorageBin != BinCROD {
			continue
		}
		b, ok := rowBucket(r, ref)
		if !ok {
			continue
		}
		s := sums[r.Warehouse]
		if s == nil {
			s = &bucketSums{}
			sums[r.Warehouse] = s
		}
		s.add(b, decimal.NewFromFloat(r.AvailableQty))
	}

	out := make(WarehouseSummary, len(sums))
	for wh, s := range sums {
		out[wh] = s.totals()
	}
	return out
}

// Summarize reports exactly the tracked warehouses, zero where nothing matched.
func Summarize(t *Table, ref time.Time) WarehouseSummary {
	all := SummarizeAll(t, ref)
	out := make(WarehouseSummary, len(TrackedWarehouses))
	for _, wh := range TrackedWarehouses {
		out[wh] = all[wh]
	}
	return out
}
