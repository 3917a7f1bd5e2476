package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidClock = errors.New("invalid time of day")
	ErrInvalidSlot  = errors.New("invalid time slot")
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q, expected YYYY-MM-DD", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d Date) Compare(other Date) int {
	return d.In(time.UTC).Compare(other.In(time.UTC))
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.In(time.UTC).Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ClockTime is a time of day with minute precision, stored as minutes after
// midnight. EndOfDay (24:00) is valid only as the end of a slot.
type ClockTime int

const EndOfDay ClockTime = 24 * 60

func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidClock, hour, minute)
	}
	return ClockTime(hour*60 + minute), nil
}

// ParseClockTime accepts "HH:MM" or "HH:MM:SS" with zero seconds.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q, expected HH:MM", ErrInvalidClock, s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return 0, fmt.Errorf("%w: %q, seconds are not supported", ErrInvalidClock, s)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q, expected HH:MM", ErrInvalidClock, s)
	}
	return NewClockTime(h, m)
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Slot is a half-open interval [Start, End) within a single day.
type Slot struct {
	Start ClockTime `json:"start_time"`
	End   ClockTime `json:"end_time"`
}

func NewSlot(start, end ClockTime) (Slot, error) {
	s := Slot{Start: start, End: end}
	if err := s.Validate(); err != nil {
		return Slot{}, err
	}
	return s, nil
}

// ParseHourRange parses the "<startHour>-<endHour>" form used by booking
// forms, e.g. "9-10".
func ParseHourRange(s string) (Slot, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Slot{}, fmt.Errorf("%w: %q, expected <startHour>-<endHour>", ErrInvalidSlot, s)
	}
	startHour, err1 := strconv.Atoi(strings.TrimSpace(from))
	endHour, err2 := strconv.Atoi(strings.TrimSpace(to))
	if err1 != nil || err2 != nil {
		return Slot{}, fmt.Errorf("%w: %q, hours must be integers", ErrInvalidSlot, s)
	}
	start, err := NewClockTime(startHour, 0)
	if err != nil {
		return Slot{}, err
	}
	end, err := NewClockTime(endHour, 0)
	if err != nil {
		return Slot{}, err
	}
	return NewSlot(start, end)
}

func (s Slot) Validate() error {
	if s.Start < 0 || s.End > EndOfDay {
		return fmt.Errorf("%w: %s-%s is outside the day", ErrInvalidSlot, s.Start, s.End)
	}
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidSlot, s.Start, s.End)
	}
	return nil
}

// Overlaps uses the half-open test, so slots that only touch do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start < other.End && other.Start < s.End
}

func (s Slot) Duration() time.Duration {
	return time.Duration(s.End-s.Start) * time.Minute
}

func (s Slot) String() string {
	return s.Start.String() + "-" + s.End.String()
}
