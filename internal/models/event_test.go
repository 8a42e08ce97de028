package models

import (
	"sort"
	"testing"
	"time"
)

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2025, 1, 1, 8, 55, 0, 0, time.Local)

	s := FormatTime(in)
	if s != "2025-01-01T08:55:00" {
		t.Errorf("FormatTime() = %q", s)
	}

	out, err := ParseTime(s)
	if err != nil {
		t.Fatalf("ParseTime() error = %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip: %v != %v", out, in)
	}
}

// The repository compares stored timestamps as strings; the wire format
// must sort the same way the instants do.
func TestLexicographicOrderMatchesChronological(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 12, 31, 23, 59, 59, 0, time.Local),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local),
		time.Date(2025, 2, 28, 12, 30, 0, 0, time.Local),
		time.Date(2025, 2, 28, 9, 5, 0, 0, time.Local),
	}

	formatted := make([]string, len(times))
	for i, tm := range times {
		formatted[i] = FormatTime(tm)
	}

	sort.Strings(formatted)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for i := range times {
		if formatted[i] != FormatTime(times[i]) {
			t.Fatalf("order diverges at %d: %q != %q", i, formatted[i], FormatTime(times[i]))
		}
	}
}
