package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/crod-stock-bot/internal/domain/stock"
)

const (
	headerDateLayout  = "January 02, 2006"
	invalidPreviewLen = 5
)

func refDates(ref time.Time) (today, yesterday time.Time) {
	today = stock.Day(ref)
	return today, today.AddDate(0, 0, -1)
}

func formatNOS(q float64) string {
	return fmt.Sprintf("%.2f NOS", q)
}

func formatGRDate(r stock.Row) string {
	if r.GRDateInvalid {
		return r.GRDateRaw
	}
	return r.GRDate.Format(stock.GRDateLayout)
}

func bucketLabel(b stock.Bucket) string {
	switch b {
	case stock.BucketCurrent:
		return "Current Stock"
	case stock.BucketYesterday:
		return "Yesterday's Stock"
	case stock.BucketPrevious:
		return "Previous Stock"
	}
	return string(b)
}

func bucketTitle(b stock.Bucket, ref time.Time) string {
	today, yesterday := refDates(ref)
	switch b {
	case stock.BucketCurrent:
		return fmt.Sprintf("Current Stock (%s)", today.Format(headerDateLayout))
	case stock.BucketYesterday:
		return fmt.Sprintf("Yesterday's Stock (%s)", yesterday.Format(headerDateLayout))
	case stock.BucketPrevious:
		return fmt.Sprintf("Previous Stock (Before %s)", yesterday.Format(headerDateLayout))
	}
	return bucketLabel(b)
}

// kpiText renders the six headline totals for the tracked warehouses.
func kpiText(sum stock.WarehouseSummary, ref time.Time) string {
	today, yesterday := refDates(ref)
	var sb strings.Builder
	sb.WriteString("📦 Stock summary (CROD)\n")
	for _, wh := range stock.TrackedWarehouses {
		t := sum[wh]
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%s Current Stock (CROD, %s): %s\n", wh, today.Format(headerDateLayout), formatNOS(t.Current))
		fmt.Fprintf(&sb, "%s Yesterday's Stock (CROD, %s): %s\n", wh, yesterday.Format(headerDateLayout), formatNOS(t.Yesterday))
		fmt.Fprintf(&sb, "%s Previous Stock (CROD): %s\n", wh, formatNOS(t.Previous))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// invalidDatesText is empty when every GR Date parsed.
func invalidDatesText(inv stock.InvalidDates) string {
	if inv.Count == 0 {
		return ""
	}
	sample := inv.Sample
	if len(sample) > invalidPreviewLen {
		sample = sample[:invalidPreviewLen]
	}
	quoted := make([]string, len(sample))
	for i, s := range sample {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("⚠️ Found %d rows with invalid GR Date values. Examples: [%s]. "+
		"These rows are included but may not appear in Current/Yesterday's/Previous Stock.",
		inv.Count, strings.Join(quoted, ", "))
}

func loadedText(fileName string, t *stock.Table, sum stock.WarehouseSummary, ref time.Time) string {
	parts := []string{fmt.Sprintf("✅ Data loaded successfully: %s (%d rows)", fileName, t.Len())}
	if w := invalidDatesText(t.InvalidDates()); w != "" {
		parts = append(parts, w)
	}
	parts = append(parts, kpiText(sum, ref))
	return strings.Join(parts, "\n\n")
}

func emptyCategoryText(c stock.Category, warehouse string, b stock.Bucket) string {
	return fmt.Sprintf("No %s FG codes in %s for %s stock.", c, warehouse, b)
}

// categoryText renders the drill-down view: category counts, the first
// previewRows detail rows and a line for every empty category.
func categoryText(cs stock.CategorySummary, ref time.Time, previewRows int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏬 %s · %s\n\n", cs.Warehouse, bucketTitle(cs.Bucket, ref))
	for _, c := range stock.Categories {
		br := cs.Breakdown(c)
		fmt.Fprintf(&sb, "• %s: %d FG codes (%s)\n", c, br.Count, formatNOS(br.Qty))
	}

	if n := len(cs.FullRows); n > 0 {
		shown := n
		if previewRows >= 0 && shown > previewRows {
			shown = previewRows
		}
		fmt.Fprintf(&sb, "\nStock details (sorted by GR Date), %d of %d:\n", shown, n)
		for _, r := range cs.FullRows[:shown] {
			fmt.Fprintf(&sb, "%s | %s | %.2f | %s | %s\n",
				r.Product, r.Description, r.AvailableQty, r.HandlingUnit, formatGRDate(r))
		}
	}

	var empty []string
	for _, c := range stock.Categories {
		if cs.Breakdown(c).Count == 0 {
			empty = append(empty, emptyCategoryText(c, cs.Warehouse, cs.Bucket))
		}
	}
	if len(empty) > 0 {
		sb.WriteString("\n" + strings.Join(empty, "\n"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func todayText(ref time.Time, pinned bool) string {
	today, yesterday := refDates(ref)
	src := "today's date"
	if pinned {
		src = "pinned in configuration"
	}
	return fmt.Sprintf("📅 Reference date: %s (%s)\nYesterday: %s",
		today.Format(headerDateLayout), src, yesterday.Format(headerDateLayout))
}
