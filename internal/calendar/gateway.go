// Package calendar is the boundary to each counselor's external calendar.
//
// Every operation takes the counselor's credential explicitly; a single Gateway
// instance is shared by the whole process. Provider failures never surface as
// errors: lists degrade to empty results and writes report ok=false.
package calendar

import (
	"context"
	"strings"
	"time"
)

// Credential is the opaque per-counselor access grant for the provider.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Usable reports whether the credential can authorize a request on its own or
// through a refresh.
func (c Credential) Usable() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

type Event struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
}

type EventRequest struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Virtual     bool
}

type CreatedEvent struct {
	EventID  string
	MeetLink *string
}

type Gateway interface {
	// ListAvailabilityMarkers returns the events of the local day whose title
	// marks the range as offered for appointments.
	ListAvailabilityMarkers(ctx context.Context, cred Credential, date time.Time) []Event
	// ListBusyEvents returns the timed events of the local day that are not markers.
	ListBusyEvents(ctx context.Context, cred Credential, date time.Time) []Event
	// ListEvents returns every timed event of the local day.
	ListEvents(ctx context.Context, cred Credential, date time.Time) []Event
	CreateEvent(ctx context.Context, cred Credential, req EventRequest) (*CreatedEvent, bool)
	DeleteEvent(ctx context.Context, cred Credential, eventID string) bool
}

// MarkerMatcher decides whether an event title flags an availability block.
type MarkerMatcher struct {
	keyword string
}

func NewMarkerMatcher(keyword string) MarkerMatcher {
	return MarkerMatcher{keyword: strings.ToUpper(strings.TrimSpace(keyword))}
}

func (m MarkerMatcher) Keyword() string {
	return m.keyword
}

func (m MarkerMatcher) IsMarker(summary string) bool {
	if m.keyword == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(summary), m.keyword)
}

// Markers keeps the timed events flagged as availability blocks.
func (m MarkerMatcher) Markers(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.AllDay || !m.IsMarker(ev.Summary) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Busy keeps the timed events that are not availability markers. All-day
// events are calendar artifacts rather than conflicts.
func (m MarkerMatcher) Busy(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.AllDay || m.IsMarker(ev.Summary) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// DayBounds returns midnight in loc of date's calendar day and of the
// following day. The year, month and day of date are used as they are, so a
// date parsed as UTC names the same local day.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
