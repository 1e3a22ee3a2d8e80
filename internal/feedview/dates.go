package feedview

import (
	"fmt"
	"math"
	"time"
)

const (
	shortDate = "Jan 2, 2006"
	longDate  = "Monday, January 2, 2006"
	monthDate = "January 2006"
)

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NiceDate is "Today", "Yesterday" or the short date of ts. With
// largeIntervals, dates in the last week read "This Week" and older ones
// only show the month.
func NiceDate(ts, now time.Time, largeIntervals bool) string {
	ts = ts.In(now.Location())
	switch {
	case sameDay(ts, now):
		return "Today"
	case sameDay(ts, now.Add(-24*time.Hour)):
		return "Yesterday"
	}
	if largeIntervals {
		if ts.After(now.Add(-7 * 24 * time.Hour)) {
			return "This Week"
		}
		return ts.Format(monthDate)
	}
	return ts.Format(shortDate)
}

// DateHeader is the heading used to group results by day.
func DateHeader(ts, now time.Time) string {
	ts = ts.In(now.Location())
	switch {
	case sameDay(ts, now):
		return "Today"
	case sameDay(ts, now.Add(-24*time.Hour)):
		return "Yesterday"
	}
	return ts.Format(longDate)
}

const (
	minute = time.Minute
	hour   = time.Hour
	day    = 24 * time.Hour
	month  = 30 * day
)

// RelativeDate phrases the distance from now to ts, e.g. "3 hours ago" or
// "last week".
func RelativeDate(ts, now time.Time) string {
	diff := now.Sub(ts)
	switch {
	case diff < hour:
		return relative(floorDiv(diff, minute), "minute")
	case diff < day:
		return relative(floorDiv(diff, hour), "hour")
	case diff < month:
		return relative(floorDiv(diff, day), "day")
	case diff < 3*month:
		return relative(floorDiv(diff, 7*day), "week")
	case diff < 12*month:
		return relative(floorDiv(diff, month), "month")
	}
	return relative(floorDiv(diff, 12*month), "year")
}

// floorDiv returns floor(-d/unit), the signed offset of a past time.
func floorDiv(d, unit time.Duration) int {
	return int(math.Floor(-float64(d) / float64(unit)))
}

var namedOffsets = map[string]map[int]string{
	"minute": {0: "this minute"},
	"hour":   {0: "this hour"},
	"day":    {-1: "yesterday", 0: "today", 1: "tomorrow"},
	"week":   {-1: "last week", 0: "this week", 1: "next week"},
	"month":  {-1: "last month", 0: "this month", 1: "next month"},
	"year":   {-1: "last year", 0: "this year", 1: "next year"},
}

func relative(n int, unit string) string {
	if s, ok := namedOffsets[unit][n]; ok {
		return s
	}
	abs := n
	if abs < 0 {
		abs = -abs
	}
	label := unit
	if abs != 1 {
		label += "s"
	}
	if n < 0 {
		return fmt.Sprintf("%d %s ago", abs, label)
	}
	return fmt.Sprintf("in %d %s", abs, label)
}
