package stock

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Normalize validates the source columns and coerces every record into a Row.
//
// present is the header of the source; when nil the union of record keys is used.
// A missing required column fails the whole load with *SchemaError. Per-row
// problems never fail: quantities fall back to 0 and unparseable GR dates are
// kept and flagged.
func Normalize(records []Record, present []string) (*Table, error) {
	if present == nil {
		present = recordKeys(records)
	}
	if missing := missingFields(present); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, normalizeRecord(rec))
	}
	return NewTable(rows), nil
}

func normalizeRecord(rec Record) Row {
	r := Row{
		Warehouse:    asString(rec[FieldWarehouse]),
		StorageBin:   asString(rec[FieldStorageBin]),
		Product:      asString(rec[FieldProduct]),
		Description:  asText(rec[FieldDescription]),
		AvailableQty: asQty(rec[FieldAvailableQty]),
		StockType:    asString(rec[FieldStockType]),
		HandlingUnit: asString(rec[FieldHandlingUnit]),
	}
	d, ok := asGRDate(rec[FieldGRDate])
	if ok {
		r.GRDate = d
	} else {
		r.GRDateInvalid = true
		r.GRDateRaw = asString(rec[FieldGRDate])
	}
	return r
}

func missingFields(present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, p := range present {
		have[strings.TrimSpace(p)] = struct{}{}
	}
	var missing []string
	for _, f := range RequiredFields {
		if _, ok := have[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func recordKeys(records []Record) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, rec := range records {
		for k := range rec {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(GRDateLayout)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// asText is asString without trimming; descriptions keep their spacing.
func asText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	return asString(v)
}

// asQty parses a quantity of any source type; anything non-numeric is 0.
func asQty(v any) float64 {
	d, ok := asDecimal(v)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case float32:
		return asDecimal(float64(t))
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case json.Number:
		return parseDecimal(t.String())
	case string:
		return parseDecimal(t)
	case []byte:
		return parseDecimal(string(t))
	}
	return decimal.Zero, false
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// asGRDate accepts native dates as they are and parses text as DD.MM.YYYY.
func asGRDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return Day(t), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return Day(*t), true
	case string:
		d, err := time.Parse(GRDateParseLayout, strings.TrimSpace(t))
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	return time.Time{}, false
}
