package stock

import (
	"encoding/json"
	"fmt"
	"time"
)

// Column names of the warehouse stock extract.
const (
	FieldWarehouse    = "EWM WH"
	FieldStorageBin   = "Storage BIN"
	FieldProduct      = "Product"
	FieldDescription  = "Material Description"
	FieldAvailableQty = "Available Qty"
	FieldStockType    = "Stock Type"
	FieldGRDate       = "GR Date"
	FieldHandlingUnit = "Handling Unit"
)

// RequiredFields must all be present in a source, otherwise loading fails with *SchemaError.
var RequiredFields = []string{
	FieldWarehouse,
	FieldStorageBin,
	FieldProduct,
	FieldDescription,
	FieldAvailableQty,
	FieldStockType,
	FieldGRDate,
	FieldHandlingUnit,
}

const (
	// BinCROD is the only storage bin taken into summaries.
	BinCROD = "CROD"

	WarehouseCHKO = "CHKO"
	WarehouseCHKI = "CHKI"

	// GRDateLayout is DD.MM.YYYY, e.g. 24.06.2025.
	GRDateLayout = "02.01.2006"

	// GRDateParseLayout also accepts unpadded day and month, e.g. 5.6.2025.
	GRDateParseLayout = "2.1.2006"

	// InvalidSampleSize bounds the diagnostic sample of unparseable GR dates.
	InvalidSampleSize = 10
)

// TrackedWarehouses are the warehouses reported by Summarize.
var TrackedWarehouses = []string{WarehouseCHKO, WarehouseCHKI}

// Record is one raw row from a tabular source, keyed by column name.
type Record map[string]any

// Row is one normalized stock line.
type Row struct {
	Warehouse     string    `json:"warehouse"`
	StorageBin    string    `json:"storage_bin"`
	Product       string    `json:"product"`
	Description   string    `json:"description"`
	AvailableQty  float64   `json:"available_qty"`
	StockType     string    `json:"stock_type"`
	GRDate        time.Time `json:"gr_date"`
	GRDateInvalid bool      `json:"gr_date_invalid"`
	GRDateRaw     string    `json:"gr_date_raw,omitempty"`
	HandlingUnit  string    `json:"handling_unit"`
}

// InvalidDates summarizes rows whose GR date could not be parsed.
type InvalidDates struct {
	Count  int      `json:"count"`
	Sample []string `json:"sample,omitempty"`
}

// Table is an immutable normalized extract. Use Rows to get a private copy.
type Table struct {
	rows    []Row
	invalid InvalidDates
}

// NewTable builds a table from already normalized rows. The slice is copied.
func NewTable(rows []Row) *Table {
	t := &Table{rows: make([]Row, len(rows))}
	copy(t.rows, rows)
	for _, r := range t.rows {
		if !r.GRDateInvalid {
			continue
		}
		t.invalid.Count++
		if len(t.invalid.Sample) < InvalidSampleSize {
			t.invalid.Sample = append(t.invalid.Sample, r.GRDateRaw)
		}
	}
	return t
}

// Len counts every row, including rows with an invalid GR date.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *Table) InvalidDates() InvalidDates {
	out := t.invalid
	out.Sample = append([]string(nil), t.invalid.Sample...)
	return out
}

type tableJSON struct {
	Rows []Row `json:"rows"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{Rows: t.rows})
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = *NewTable(raw.Rows)
	return nil
}

// Bucket is a goods-receipt date bucket relative to a reference day.
type Bucket string

const (
	BucketCurrent   Bucket = "current"
	BucketYesterday Bucket = "yesterday"
	BucketPrevious  Bucket = "previous"
)

var Buckets = []Bucket{BucketCurrent, BucketYesterday, BucketPrevious}

func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case BucketCurrent, BucketYesterday, BucketPrevious:
		return b, nil
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// Category is the business status derived from a stock-type code.
type Category string

const (
	CategoryReady   Category = "Ready to Dispatch"
	CategoryQuality Category = "Quality"
	CategoryBlocked Category = "Blocked"
	CategoryUnknown Category = "Unknown"
)

// Categories lists the reported categories in display order.
var Categories = []Category{CategoryReady, CategoryQuality, CategoryBlocked}

// CategoryOf maps a stock-type code to its category.
func CategoryOf(code string) Category {
	switch code {
	case "DU", "EU":
		return CategoryReady
	case "DQ", "EQ":
		return CategoryQuality
	case "DB":
		return CategoryBlocked
	}
	return CategoryUnknown
}

// Totals holds summed available quantity per bucket.
type Totals struct {
	Current   float64 `json:"current"`
	Yesterday float64 `json:"yesterday"`
	Previous  float64 `json:"previous"`
}

func (t Totals) Of(b Bucket) float64 {
	switch b {
	case BucketCurrent:
		return t.Current
	case BucketYesterday:
		return t.Yesterday
	case BucketPrevious:
		return t.Previous
	}
	return 0
}

// WarehouseSummary maps a warehouse code to its bucket totals.
type WarehouseSummary map[string]Totals

type CategoryBreakdown struct {
	Rows  []Row   `json:"rows"`
	Count int     `json:"count"` // distinct product codes
	Qty   float64 `json:"qty"`
}

// SummaryRow is the quantity of one product within one category.
type SummaryRow struct {
	Product  string   `json:"product"`
	Category Category `json:"category"`
	Qty      float64  `json:"qty"`
}

// CategorySummary is the result of Categorize. Results may be shared through
// Memo, so callers must not modify the slices in place.
type CategorySummary struct {
	Warehouse   string            `json:"warehouse"`
	Bucket      Bucket            `json:"bucket"`
	FullRows    []Row             `json:"full_rows"`
	SummaryRows []SummaryRow      `json:"summary_rows"`
	Ready       CategoryBreakdown `json:"ready"`
	Quality     CategoryBreakdown `json:"quality"`
	Blocked     CategoryBreakdown `json:"blocked"`
}

// Breakdown returns the per-category part for c.
func (s CategorySummary) Breakdown(c Category) CategoryBreakdown {
	switch c {
	case CategoryReady:
		return s.Ready
	case CategoryQuality:
		return s.Quality
	case CategoryBlocked:
		return s.Blocked
	}
	return CategoryBreakdown{}
}
