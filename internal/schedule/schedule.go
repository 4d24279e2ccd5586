// Package schedule provides time-of-day arithmetic for event windows that may cross midnight.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

var ErrEmptyWindow = errors.New("event end time must differ from start time")

// TimeOfDay is a wall-clock time expressed as the offset from midnight.
type TimeOfDay time.Duration

var timeOfDayLayouts = []string{"15:04", "15:04:05"}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" in 24h notation.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("time of day is required")
	}

	for _, layout := range timeOfDayLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		offset := time.Duration(parsed.Hour())*time.Hour +
			time.Duration(parsed.Minute())*time.Minute +
			time.Duration(parsed.Second())*time.Second
		return TimeOfDay(offset), nil
	}
	return 0, fmt.Errorf("time of day %q must use HH:MM in 24h notation", value)
}

// MustParseTimeOfDay is ParseTimeOfDay for constants.
func MustParseTimeOfDay(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t)
}

func (t TimeOfDay) String() string {
	return FormatOffset(time.Duration(t))
}

// Window is an event span. Offsets are measured from midnight of the start day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewWindow builds a window; an end earlier than the start means the event ends the next day.
func NewWindow(start, end TimeOfDay) (Window, error) {
	if start == end {
		return Window{}, ErrEmptyWindow
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow parses both ends of an event window.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, fmt.Errorf("start time: %w", err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Window{}, fmt.Errorf("end time: %w", err)
	}
	return NewWindow(s, e)
}

func (w Window) CrossesMidnight() bool {
	return w.End < w.Start
}

func (w Window) Duration() time.Duration {
	d := w.End.Offset() - w.Start.Offset()
	if d < 0 {
		d += day
	}
	return d
}

// EndOffset is the end instant measured from midnight of the start day.
func (w Window) EndOffset() time.Duration {
	return w.Start.Offset() + w.Duration()
}

// OffsetAfter returns the instant reached d after the window start.
func (w Window) OffsetAfter(d time.Duration) time.Duration {
	return w.Start.Offset() + d
}

// Curfew is the latest legal end instant, measured from midnight of the start day.
type Curfew time.Duration

// NextDayCurfew places the cutoff at the given wall-clock time on the day after the start.
func NextDayCurfew(t TimeOfDay) Curfew {
	return Curfew(day + t.Offset())
}

func (c Curfew) Offset() time.Duration {
	return time.Duration(c)
}

// Exceeded reports whether an end instant falls after the curfew.
func (c Curfew) Exceeded(endOffset time.Duration) bool {
	return endOffset > time.Duration(c)
}

func (c Curfew) String() string {
	return FormatOffset(time.Duration(c))
}

// WholeHoursUntil returns how many full hours fit between offset and the curfew, never negative.
func (c Curfew) WholeHoursUntil(offset time.Duration) int {
	remaining := time.Duration(c) - offset
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Hour)
}

// CeilHours rounds a duration up to whole hours; non-positive durations yield zero.
func CeilHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Hour - 1) / time.Hour)
}

// HoursToDuration converts fractional hours, rounding to the nearest minute.
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour)).Round(time.Minute)
}

// FormatOffset renders an offset as HH:MM, with a "+Nd" suffix when it falls on a later day.
func FormatOffset(offset time.Duration) string {
	days := int(offset / day)
	rest := offset % day
	if rest < 0 {
		rest += day
		days--
	}
	clock := fmt.Sprintf("%02d:%02d", int(rest/time.Hour), int(rest%time.Hour/time.Minute))
	if days == 0 {
		return clock
	}
	return fmt.Sprintf("%s (+%dd)", clock, days)
}
