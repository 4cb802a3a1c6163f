package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
	"github.com/Spok95/crod-stock-bot/internal/infra/metrics"
)

// Loader reads uploaded extracts into normalized stock tables.
type Loader struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	sheet   string
}

func NewLoader(log *slog.Logger, m *metrics.Metrics, sheet string) *Loader {
	if log == nil {
		log = slog.Default()
	}
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Loader{log: log.With("component", "extract"), metrics: m, sheet: sheet}
}

// Load detects the format from fileName, decodes data and normalizes it.
// It returns either a complete table or a *stock.SchemaError / *stock.SourceFormatError.
func (l *Loader) Load(ctx context.Context, fileName string, data []byte) (*stock.Table, error) {
	log := l.log.With("file", fileName, "bytes", len(data))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, l.fail(ctx, log, err)
	}
	log.InfoContext(ctx, "detected file format", "format", format)

	records, header, err := Decode(format, data, l.sheet)
	if err != nil {
		return nil, l.fail(ctx, log, err)
	}

	table, err := stock.Normalize(records, header)
	if err != nil {
		return nil, l.fail(ctx, log, err)
	}

	inv := table.InvalidDates()
	if inv.Count > 0 {
		log.WarnContext(ctx, "rows with invalid GR Date kept",
			"count", inv.Count, "sample", inv.Sample)
	}
	l.metrics.ExtractLoaded(string(format), inv.Count)
	log.InfoContext(ctx, "stock extract loaded", "format", format, "rows", table.Len())
	return table, nil
}

func (l *Loader) fail(ctx context.Context, log *slog.Logger, err error) error {
	var (
		schemaErr *stock.SchemaError
		formatErr *stock.SourceFormatError
	)
	switch {
	case errors.As(err, &schemaErr):
		l.metrics.LoadFailed("schema")
		log.ErrorContext(ctx, "missing columns", "missing", schemaErr.Missing)
	case errors.As(err, &formatErr):
		l.metrics.LoadFailed("format")
		log.ErrorContext(ctx, "file loading failed", "err", err)
	default:
		l.metrics.LoadFailed("other")
		log.ErrorContext(ctx, "file loading failed", "err", err)
	}
	return err
}
