package analytics

import (
	"errors"
	"fmt"
	"time"

	"pharmastock/m/domain"
)

// Window is the dashboard's selectable time range.
type Window string

const (
	Window7Days  Window = "7d"
	Window30Days Window = "30d"
	Window90Days Window = "90d"
)

// weeklyBuckets covers 90 days with whole weeks.
const weeklyBuckets = 13

var ErrInvalidWindow = errors.New("window must be one of 7d, 30d, 90d")

// ParseWindow accepts "7d", "30d" or "90d". An empty string means 7d.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case "":
		return Window7Days, nil
	case Window7Days, Window30Days, Window90Days:
		return w, nil
	}
	return "", fmt.Errorf("%w (got %q)", ErrInvalidWindow, s)
}

// Weekly reports whether the window buckets by week instead of by day.
func (w Window) Weekly() bool { return w == Window90Days }

// Len is the fixed number of buckets the window produces.
func (w Window) Len() int {
	switch w {
	case Window30Days:
		return 30
	case Window90Days:
		return weeklyBuckets
	default:
		return 7
	}
}

// Since is the inclusive start of the first bucket.
func (w Window) Since(now time.Time, loc *time.Location) time.Time {
	if w.Weekly() {
		return weekStart(now, loc).AddDate(0, 0, -7*(w.Len()-1))
	}
	return dayStart(now, loc).AddDate(0, 0, -(w.Len() - 1))
}

// Bucket is one point of the activity series.
type Bucket struct {
	Start time.Time `json:"start"`
	Label string    `json:"label"`
	Units int64     `json:"units"`
}

// BucketActivity totals moved units per calendar day (7d, 30d) or per week
// starting Sunday (90d), oldest first, ending with the bucket containing now.
// The result always has w.Len() buckets; entries outside the window are ignored.
func BucketActivity(w Window, entries []domain.Transaction, now time.Time, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.UTC
	}
	n := w.Len()
	start := w.Since(now, loc)
	buckets := make([]Bucket, n)
	for i := range buckets {
		var s time.Time
		if w.Weekly() {
			s = start.AddDate(0, 0, 7*i)
			buckets[i] = Bucket{Start: s, Label: "Wk " + s.Format("Jan 02")}
		} else {
			s = start.AddDate(0, 0, i)
			buckets[i] = Bucket{Start: s, Label: s.Format("Jan 02")}
		}
	}
	for _, e := range entries {
		i := bucketIndex(w, start, e.Timestamp, loc)
		if i < 0 || i >= n {
			continue
		}
		buckets[i].Units += e.Magnitude()
	}
	return buckets
}

// bucketIndex counts calendar days rather than 24h spans so DST shifts do
// not move entries between buckets.
func bucketIndex(w Window, start, ts time.Time, loc *time.Location) int {
	day := dayStart(ts, loc)
	if day.Before(start) {
		return -1
	}
	days := calendarDays(start, day)
	if w.Weekly() {
		return days / 7
	}
	return days
}

func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func weekStart(t time.Time, loc *time.Location) time.Time {
	d := dayStart(t, loc)
	return d.AddDate(0, 0, -int(d.Weekday()))
}
