package extract

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/types"
)

const parquetReaders = 1

// decodeParquet reads every top-level column of a Parquet file. Nested
// columns are skipped; the header follows the schema order.
func decodeParquet(data []byte) (records []stock.Record, header []string, err error) {
	defer recoverDecode(&err)

	pf, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, nil, err
	}
	pr, err := reader.NewParquetColumnReader(pf, parquetReaders)
	if err != nil {
		return nil, nil, err
	}
	defer pr.ReadStop()

	n := pr.GetNumRows()
	all := make([]stock.Record, n)
	for i := range all {
		all[i] = stock.Record{}
	}

	sh := pr.SchemaHandler
	for i, el := range sh.SchemaElements {
		if i == 0 || el.GetNumChildren() > 0 {
			continue
		}
		path := sh.IndexMap[int32(i)]
		if len(common.StrToPath(path)) != 2 {
			continue
		}
		name := strings.TrimSpace(sh.GetExName(i))
		header = append(header, name)
		if n == 0 {
			continue
		}
		values, _, _, err := pr.ReadColumnByPath(path, n)
		if err != nil {
			return nil, nil, fmt.Errorf("read column %q: %w", name, err)
		}
		for j := 0; j < len(values) && j < len(all); j++ {
			all[j][name] = parquetValue(el, values[j])
		}
	}
	if len(header) == 0 {
		return nil, nil, errNoHeader
	}

	records = make([]stock.Record, 0, len(all))
	for _, rec := range all {
		if !isBlankRecord(rec) {
			records = append(records, rec)
		}
	}
	return records, header, nil
}

// parquetValue maps a physical value to what the core expects: dates and
// timestamps become time.Time, decimals decimal.Decimal, blank text nil.
func parquetValue(el *parquet.SchemaElement, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int32:
		switch {
		case isParquetDate(el):
			return time.Unix(int64(x)*int64(24*time.Hour/time.Second), 0).UTC()
		case hasConverted(el, parquet.ConvertedType_DECIMAL):
			return decimal.New(int64(x), -el.GetScale())
		}
		return x
	case int64:
		if t, ok := parquetTimestamp(el, x); ok {
			return t
		}
		if hasConverted(el, parquet.ConvertedType_DECIMAL) {
			return decimal.New(x, -el.GetScale())
		}
		return x
	case string:
		if el.GetType() == parquet.Type_INT96 {
			return types.INT96ToTime(x)
		}
		if hasConverted(el, parquet.ConvertedType_DECIMAL) {
			return decimal.NewFromBigInt(signedBigInt([]byte(x)), -el.GetScale())
		}
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return x
	}
	return v
}

func hasConverted(el *parquet.SchemaElement, ct parquet.ConvertedType) bool {
	return el.IsSetConvertedType() && el.GetConvertedType() == ct
}

func isParquetDate(el *parquet.SchemaElement) bool {
	if hasConverted(el, parquet.ConvertedType_DATE) {
		return true
	}
	lt := el.GetLogicalType()
	return lt != nil && lt.IsSetDATE()
}

func parquetTimestamp(el *parquet.SchemaElement, v int64) (time.Time, bool) {
	switch {
	case hasConverted(el, parquet.ConvertedType_TIMESTAMP_MILLIS):
		return types.TIMESTAMP_MILLISToTime(v, true), true
	case hasConverted(el, parquet.ConvertedType_TIMESTAMP_MICROS):
		return types.TIMESTAMP_MICROSToTime(v, true), true
	}
	lt := el.GetLogicalType()
	if lt == nil || !lt.IsSetTIMESTAMP() {
		return time.Time{}, false
	}
	ts := lt.GetTIMESTAMP()
	unit := ts.GetUnit()
	if unit == nil {
		return time.Time{}, false
	}
	utc := ts.GetIsAdjustedToUTC()
	switch {
	case unit.IsSetMILLIS():
		return types.TIMESTAMP_MILLISToTime(v, utc), true
	case unit.IsSetMICROS():
		return types.TIMESTAMP_MICROSToTime(v, utc), true
	case unit.IsSetNANOS():
		return types.TIMESTAMP_NANOSToTime(v, utc), true
	}
	return time.Time{}, false
}

// signedBigInt decodes a big-endian two's complement integer.
func signedBigInt(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}

func isBlankRecord(rec stock.Record) bool {
	for _, v := range rec {
		if v != nil {
			return false
		}
	}
	return true
}
