// Package dateutil provides date parsing and yearly windows.
package dateutil

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jinzhu/now"
)

// Interval groups start and end.
type Interval struct {
	Start time.Time
	End   time.Time
}

// String renders an interval.
func (iv Interval) String() string {
	return fmt.Sprintf("%s %s", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}

type (
	// PadFunc allows to move a given time back and forth.
	PadFunc func(t time.Time) time.Time
	// IntervalFunc takes a start and endtime and returns a number of
	// intervals.
	IntervalFunc func(s, e time.Time) []Interval
)

var (
	Yearly = makeIntervalFunc(padLYear, padRYear)

	padLYear = func(t time.Time) time.Time { return now.With(t).BeginningOfYear() }
	padRYear = func(t time.Time) time.Time { return now.With(t).EndOfYear() }
)

// makeIntervalFunc is a helper to create yearly and other intervals. Given two
// PadFuncs (to mark the beginning of an interval and the end), we return a
// function, that will allow us to generate intervals.
func makeIntervalFunc(padLeft, padRight PadFunc) IntervalFunc {
	return func(start, end time.Time) (result []Interval) {
		if end.Before(start) || end.Equal(start) {
			return
		}
		end = end.Add(-1 * time.Second)
		var (
			l time.Time = start
			r time.Time
		)
		for {
			r = padRight(l)
			result = append(result, Interval{l, r})
			l = padLeft(r.Add(1 * time.Second))
			if l.After(end) {
				break
			}
		}
		return result
	}
}

// Day normalizes a timestamp like "2019-03-01T12:13:14.000+0200" to
// "2019-03-01". Unparsable values yield the empty string.
func Day(value string) string {
	if value == "" {
		return ""
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// Window is a half open range of years [Start, Start+Years).
type Window struct {
	Start int
	Years int
}

// DefaultWindow returns a window of n years that ends with the year of t.
func DefaultWindow(t time.Time, n int) Window {
	return Window{Start: t.Year() - n + 1, Years: n}
}

// Contains reports whether year falls into the window.
func (w Window) Contains(year int) bool {
	return year >= w.Start && year < w.Start+w.Years
}

// List returns the years of the window in ascending order.
func (w Window) List() []int {
	if w.Years <= 0 {
		return nil
	}
	var (
		start = time.Date(w.Start, time.January, 1, 0, 0, 0, 0, time.UTC)
		end   = time.Date(w.Start+w.Years, time.January, 1, 0, 0, 0, 0, time.UTC)
		years []int
	)
	for _, iv := range Yearly(start, end) {
		years = append(years, iv.Start.Year())
	}
	return years
}

// String renders the window like "2019-2021".
func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.Start+w.Years-1)
}
