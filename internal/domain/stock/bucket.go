package stock

import "time"

// Day truncates t to its calendar day in t's own location and returns that day as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BucketOf places a GR date relative to the reference day. Dates after the
// reference day belong to no bucket.
func BucketOf(grDate, ref time.Time) (Bucket, bool) {
	day := Day(grDate)
	today := Day(ref)
	yesterday := today.AddDate(0, 0, -1)
	switch {
	case day.Equal(today):
		return BucketCurrent, true
	case day.Equal(yesterday):
		return BucketYesterday, true
	case day.Before(yesterday):
		return BucketPrevious, true
	}
	return "", false
}

func rowBucket(r Row, ref time.Time) (Bucket, bool) {
	if r.GRDateInvalid {
		return "", false
	}
	return BucketOf(r.GRDate, ref)
}
