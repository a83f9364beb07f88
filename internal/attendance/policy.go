package attendance

import (
	"time"

	"github.com/pkg/errors"
)

// Policy carries the school settings the rules depend on.
type Policy struct {
	Location         *time.Location
	LateAfter        Clock
	CheckoutEarliest Clock
	SchoolDays       map[time.Weekday]bool
}

const (
	DefaultLateAfter        = "07:15"
	DefaultCheckoutEarliest = "12:00"
	DefaultSchoolDays       = "1,2,3,4,5"
)

// DefaultPolicy is a Monday-Friday school, late after 07:15.
func DefaultPolicy(loc *time.Location) Policy {
	if loc == nil {
		loc = time.UTC
	}
	late, _ := ParseClock(DefaultLateAfter)
	out, _ := ParseClock(DefaultCheckoutEarliest)
	days, _ := ParseSchoolDays(DefaultSchoolDays)
	return Policy{Location: loc, LateAfter: late, CheckoutEarliest: out, SchoolDays: days}
}

// PolicyFromSettings overlays stored settings on DefaultPolicy. Invalid
// values keep the default.
func PolicyFromSettings(loc *time.Location, settings map[string]string) Policy {
	p := DefaultPolicy(loc)
	if v, ok := settings["checkin_late_after"]; ok {
		if c, err := ParseClock(v); err == nil {
			p.LateAfter = c
		}
	}
	if v, ok := settings["checkout_earliest"]; ok {
		if c, err := ParseClock(v); err == nil {
			p.CheckoutEarliest = c
		}
	}
	if v, ok := settings["school_days"]; ok {
		if d, err := ParseSchoolDays(v); err == nil {
			p.SchoolDays = d
		}
	}
	return p
}

// Today returns the school-local date of now.
func (p Policy) Today(now time.Time) string {
	return FormatDate(now.In(p.Location))
}

func (p Policy) IsSchoolDay(date string) bool {
	t, err := ParseDate(date, p.Location)
	if err != nil {
		return false
	}
	return p.SchoolDays[t.Weekday()]
}

// SchoolDaysBetween filters DateRange down to school days.
func (p Policy) SchoolDaysBetween(start, end string) ([]string, error) {
	all, err := DateRange(start, end, p.Location)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, d := range all {
		if p.IsSchoolDay(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (p Policy) IsLate(checkIn time.Time) bool {
	return ClockOf(checkIn, p.Location) > p.LateAfter
}

// NotAfterToday rejects dates later than today in the school timezone.
func (p Policy) NotAfterToday(date string, now time.Time) error {
	if _, err := ParseDate(date, p.Location); err != nil {
		return err
	}
	if date > p.Today(now) {
		return errors.Wrapf(ErrFutureDate, "%s", date)
	}
	return nil
}
