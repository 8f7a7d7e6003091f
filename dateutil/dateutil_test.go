package dateutil

import (
	"reflect"
	"testing"
	"time"
)

func TestWindow(t *testing.T) {
	w := Window{Start: 2019, Years: 3}
	if got := w.List(); !reflect.DeepEqual(got, []int{2019, 2020, 2021}) {
		t.Fatalf("got %v", got)
	}
	for year, want := range map[int]bool{2018: false, 2019: true, 2021: true, 2022: false} {
		if w.Contains(year) != want {
			t.Errorf("Contains(%d): got %v, want %v", year, !want, want)
		}
	}
	if w.String() != "2019-2021" {
		t.Errorf("got %v", w.String())
	}
	if got := (Window{Start: 2020}).List(); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestDefaultWindow(t *testing.T) {
	var cases = []struct {
		t    time.Time
		n    int
		want Window
	}{
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 4, Window{Start: 2021, Years: 4}},
		{time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), 5, Window{Start: 2019, Years: 5}},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5, Window{Start: 2020, Years: 5}},
		{time.Date(2024, 1, 1, 0, 30, 0, 0, time.FixedZone("EET", 2*3600)), 1, Window{Start: 2024, Years: 1}},
	}
	for _, c := range cases {
		if got := DefaultWindow(c.t, c.n); got != c.want {
			t.Errorf("DefaultWindow(%v, %d): got %+v, want %+v", c.t, c.n, got, c.want)
		}
	}
}

func TestDay(t *testing.T) {
	var cases = []struct {
		value, result string
	}{
		{"2019-03-01T12:13:14.000+0200", "2019-03-01"},
		{"2019-03-01", "2019-03-01"},
		{"", ""},
		{"not a date", ""},
	}
	for _, c := range cases {
		if got := Day(c.value); got != c.result {
			t.Errorf("Day(%q): got %q, want %q", c.value, got, c.result)
		}
	}
}
