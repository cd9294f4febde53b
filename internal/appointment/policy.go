package appointment

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ValidationError is returned for malformed input. Handlers map it to 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationError(format string, args ...any) error {
	return NewValidationError(fmt.Sprintf(format, args...))
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	ErrBeyondLookahead = errors.New("date is beyond the booking window")
	ErrLeadTimeNotMet  = errors.New("not enough notice for this date")
)

var timeOfDayPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Policy holds the booking rules that depend on wall-clock time.
type Policy struct {
	Location         *time.Location
	SlotDuration     time.Duration
	LeadTime         time.Duration
	FollowUpLeadTime time.Duration
	LookaheadDays    int
}

func DefaultPolicy(loc *time.Location) Policy {
	return Policy{
		Location:         loc,
		SlotDuration:     time.Hour,
		LeadTime:         48 * time.Hour,
		FollowUpLeadTime: 24 * time.Hour,
		LookaheadDays:    15,
	}
}

// ParseDate parses YYYY-MM-DD and returns the date at 00:00 UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, validationError("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// ParseTimeOfDay validates HH:mm and returns hour and minute.
func ParseTimeOfDay(raw string) (int, int, error) {
	if !timeOfDayPattern.MatchString(raw) {
		return 0, 0, validationError("invalid time %q, expected HH:mm", raw)
	}
	h, _ := strconv.Atoi(raw[:2])
	m, _ := strconv.Atoi(raw[3:])
	if h > 23 || m > 59 {
		return 0, 0, validationError("invalid time %q, expected HH:mm", raw)
	}
	return h, m, nil
}

// At returns the instant of date at hh:mm in the policy location.
func (p Policy) At(date time.Time, hh, mm int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hh, mm, 0, 0, p.Location)
}

// SlotStart combines a stored date and HH:mm string into an instant.
func (p Policy) SlotStart(date time.Time, hhmm string) (time.Time, error) {
	h, m, err := ParseTimeOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return p.At(date, h, m), nil
}

// Today returns the local calendar date of now at 00:00 UTC.
func (p Policy) Today(now time.Time) time.Time {
	local := now.In(p.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (p Policy) CheckLookahead(date, now time.Time) error {
	limit := p.Today(now).AddDate(0, 0, p.LookaheadDays)
	if date.After(limit) {
		return fmt.Errorf("%w: appointments can only be booked up to %d days ahead", ErrBeyondLookahead, p.LookaheadDays)
	}
	return nil
}

// EarliestDay is the first calendar date that satisfies the lead time: the
// local day containing now+lead.
func (p Policy) EarliestDay(now time.Time, followUp bool) time.Time {
	return p.Today(now.Add(p.lead(followUp)))
}

func (p Policy) CheckLeadTime(date, now time.Time, followUp bool) error {
	earliest := p.EarliestDay(now, followUp)
	if date.Before(earliest) {
		return fmt.Errorf("%w: appointments need %d hours of notice, the earliest available day is %s",
			ErrLeadTimeNotMet, int(p.lead(followUp).Hours()), earliest.Weekday())
	}
	return nil
}

func (p Policy) lead(followUp bool) time.Duration {
	if followUp {
		return p.FollowUpLeadTime
	}
	return p.LeadTime
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "miercoles": time.Wednesday, "miércoles": time.Wednesday,
	"thursday": time.Thursday, "jueves": time.Thursday,
	"friday": time.Friday, "viernes": time.Friday,
	"saturday": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
}

// ParseWeekday accepts English or Spanish day names, or 0-6 with Sunday as 0.
func ParseWeekday(raw string) (time.Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, validationError("invalid weekday %q", raw)
}
