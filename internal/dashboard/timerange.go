package dashboard

import (
	"math"
	"time"
)

// TrendPoints is the fixed length of every metric trend series
const TrendPoints = 7

// TimeRange is a dashboard comparison window ending now
type TimeRange struct {
	Key  string
	Days int
}

var timeRanges = map[string]TimeRange{
	"7days":  {Key: "7days", Days: 7},
	"30days": {Key: "30days", Days: 30},
	"90days": {Key: "90days", Days: 90},
}

// ParseTimeRange maps the timeRange query value to a window. Unknown or
// empty values fall back to 7 days.
func ParseTimeRange(s string) TimeRange {
	if tr, ok := timeRanges[s]; ok {
		return tr
	}
	return timeRanges["7days"]
}

// Windows returns the start of the current window and the start of the
// immediately preceding window of the same length.
func (tr TimeRange) Windows(now time.Time) (start, previousStart time.Time) {
	start = now.AddDate(0, 0, -tr.Days)
	previousStart = start.AddDate(0, 0, -tr.Days)
	return start, previousStart
}

// PercentageChange is the rounded relative change from prev to cur.
// A zero baseline yields 100 when cur grew and 0 otherwise.
func PercentageChange(cur, prev int64) int64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return roundHalfUp(float64(cur-prev) / float64(prev) * 100)
}

// roundHalfUp rounds .5 towards positive infinity
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// Bucket is a half-open [From, To) trend interval
type Bucket struct {
	From time.Time
	To   time.Time
}

// TrendBuckets splits time into TrendPoints buckets, oldest first.
//
// By default the buckets are the last 7 calendar days ending today in now's
// location, whatever the requested range. With proportional set they divide
// [start, now] into equal spans instead.
func TrendBuckets(now, start time.Time, proportional bool) []Bucket {
	out := make([]Bucket, TrendPoints)
	if !proportional {
		y, m, d := now.Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		for i := 0; i < TrendPoints; i++ {
			from := today.AddDate(0, 0, i-(TrendPoints-1))
			out[i] = Bucket{From: from, To: from.AddDate(0, 0, 1)}
		}
		return out
	}
	span := now.Sub(start) / TrendPoints
	for i := 0; i < TrendPoints; i++ {
		from := start.Add(time.Duration(i) * span)
		to := from.Add(span)
		if i == TrendPoints-1 {
			// include now itself in the newest bucket
			to = now.Add(time.Nanosecond)
		}
		out[i] = Bucket{From: from, To: to}
	}
	return out
}

// countInto tallies each timestamp into the bucket containing it; values
// outside every bucket are ignored.
func countInto(buckets []Bucket, times []time.Time) []int64 {
	counts := make([]int64, len(buckets))
	for _, t := range times {
		for i, b := range buckets {
			if !t.Before(b.From) && t.Before(b.To) {
				counts[i]++
				break
			}
		}
	}
	return counts
}
