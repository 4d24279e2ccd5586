package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "evening", value: "21:00", want: 21 * time.Hour},
		{name: "with minutes", value: "02:30", want: 2*time.Hour + 30*time.Minute},
		{name: "with seconds", value: "22:15:00", want: 22*time.Hour + 15*time.Minute},
		{name: "surrounding spaces", value: " 10:00 ", want: 10 * time.Hour},
		{name: "single digit hour", value: "9:45", want: 9*time.Hour + 45*time.Minute},
		{name: "midnight", value: "00:00", want: 0},
		{name: "last second of the day", value: "23:59:59", want: 23*time.Hour + 59*time.Minute + 59*time.Second},
		{name: "empty", value: "", wantErr: true},
		{name: "hour out of range", value: "24:00", wantErr: true},
		{name: "minute out of range", value: "12:60", wantErr: true},
		{name: "single digit minute", value: "12:5", wantErr: true},
		{name: "not a time", value: "noon", wantErr: true},
		{name: "second out of range", value: "12:00:60", wantErr: true},
		{name: "twelve hour clock", value: "9:00 PM", wantErr: true},
		{name: "trailing colon", value: "12:00:", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTimeOfDay(tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got nil", tc.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Offset() != tc.want {
				t.Fatalf("ParseTimeOfDay(%q) = %v, want %v", tc.value, got.Offset(), tc.want)
			}
		})
	}
}

func TestWindowDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		start, end  string
		want        time.Duration
		wantCrosses bool
		wantEnd     string
	}{
		{name: "same day", start: "14:00", end: "19:00", want: 5 * time.Hour, wantEnd: "19:00"},
		{name: "crosses midnight", start: "21:00", end: "02:30", want: 5*time.Hour + 30*time.Minute, wantCrosses: true, wantEnd: "02:30 (+1d)"},
		{name: "ends exactly at midnight", start: "19:00", end: "00:00", want: 5 * time.Hour, wantCrosses: true, wantEnd: "00:00 (+1d)"},
		{name: "one minute before start", start: "10:00", end: "09:59", want: 23*time.Hour + 59*time.Minute, wantCrosses: true, wantEnd: "09:59 (+1d)"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w, err := ParseWindow(tc.start, tc.end)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := w.Duration(); got != tc.want {
				t.Fatalf("Duration() = %v, want %v", got, tc.want)
			}
			if got := w.CrossesMidnight(); got != tc.wantCrosses {
				t.Fatalf("CrossesMidnight() = %v, want %v", got, tc.wantCrosses)
			}
			if got := FormatOffset(w.EndOffset()); got != tc.wantEnd {
				t.Fatalf("EndOffset() = %q, want %q", got, tc.wantEnd)
			}
		})
	}
}

func TestParseWindowRejectsEmptyWindow(t *testing.T) {
	t.Parallel()

	_, err := ParseWindow("20:00", "20:00")
	if !errors.Is(err, ErrEmptyWindow) {
		t.Fatalf("expected ErrEmptyWindow, got %v", err)
	}
}

func TestCurfew(t *testing.T) {
	t.Parallel()

	curfew := NextDayCurfew(MustParseTimeOfDay("02:00"))
	if got := curfew.String(); got != "02:00 (+1d)" {
		t.Fatalf("String() = %q", got)
	}

	w, err := ParseWindow("22:00", "03:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 22:00 + 4h lands exactly on the curfew.
	atCurfew := w.OffsetAfter(4 * time.Hour)
	if curfew.Exceeded(atCurfew) {
		t.Fatalf("end at %s should not exceed curfew", FormatOffset(atCurfew))
	}
	oneMore := w.OffsetAfter(5 * time.Hour)
	if !curfew.Exceeded(oneMore) {
		t.Fatalf("end at %s should exceed curfew", FormatOffset(oneMore))
	}
	if got := FormatOffset(oneMore); got != "03:00 (+1d)" {
		t.Fatalf("FormatOffset() = %q", got)
	}

	if got := curfew.WholeHoursUntil(w.OffsetAfter(2 * time.Hour)); got != 2 {
		t.Fatalf("WholeHoursUntil() = %d, want 2", got)
	}
	if got := curfew.WholeHoursUntil(oneMore); got != 0 {
		t.Fatalf("WholeHoursUntil() past curfew = %d, want 0", got)
	}
}

func TestCeilHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want int
	}{
		{in: -time.Hour, want: 0},
		{in: 0, want: 0},
		{in: time.Minute, want: 1},
		{in: 30 * time.Minute, want: 1},
		{in: time.Hour, want: 1},
		{in: 90 * time.Minute, want: 2},
	}
	for _, tc := range tests {
		if got := CeilHours(tc.in); got != tc.want {
			t.Fatalf("CeilHours(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHoursToDuration(t *testing.T) {
	t.Parallel()

	if got := HoursToDuration(5); got != 5*time.Hour {
		t.Fatalf("HoursToDuration(5) = %v", got)
	}
	if got := HoursToDuration(4.5); got != 4*time.Hour+30*time.Minute {
		t.Fatalf("HoursToDuration(4.5) = %v", got)
	}
}
