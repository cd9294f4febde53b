// Package interval holds the pure time-range arithmetic behind slot generation.
package interval

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Empty reports whether the interval has no positive length.
func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// FreeIntervals subtracts busy from [rangeStart, rangeEnd). The cursor only moves
// forward, so overlapping busy intervals merge. The result is ascending and
// non-overlapping, and every interval lies inside the range.
func FreeIntervals(rangeStart, rangeEnd time.Time, busy []Interval) []Interval {
	if !rangeEnd.After(rangeStart) {
		return nil
	}

	sorted := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.Empty() {
			continue
		}
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var free []Interval
	cursor := rangeStart
	for _, b := range sorted {
		if !cursor.Before(rangeEnd) {
			break
		}
		if b.Start.After(cursor) {
			gapEnd := b.Start
			if gapEnd.After(rangeEnd) {
				gapEnd = rangeEnd
			}
			free = append(free, Interval{Start: cursor, End: gapEnd})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(rangeEnd) {
		free = append(free, Interval{Start: cursor, End: rangeEnd})
	}
	return free
}

// Subdivide cuts iv into consecutive windows of length d starting at iv.Start.
// A trailing window shorter than d is dropped.
func Subdivide(iv Interval, d time.Duration) []Interval {
	if d <= 0 {
		return nil
	}
	var out []Interval
	for start := iv.Start; !start.Add(d).After(iv.End); start = start.Add(d) {
		out = append(out, Interval{Start: start, End: start.Add(d)})
	}
	return out
}
