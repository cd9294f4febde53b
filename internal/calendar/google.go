package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const primaryCalendar = "primary"

// ServiceFactory builds a provider client authorized with cred.
type ServiceFactory func(ctx context.Context, cred Credential) (*gcal.Service, error)

type GoogleConfig struct {
	OAuth    *oauth2.Config
	Location *time.Location
	Marker   MarkerMatcher
	Timeout  time.Duration
	// Factory overrides client construction; nil uses OAuth token sources.
	Factory ServiceFactory
}

// GoogleGateway implements Gateway on the Google Calendar v3 API.
type GoogleGateway struct {
	oauth   *oauth2.Config
	loc     *time.Location
	marker  MarkerMatcher
	timeout time.Duration
	factory ServiceFactory
	logger  *zap.Logger
}

func NewGoogleGateway(cfg GoogleConfig, logger *zap.Logger) *GoogleGateway {
	g := &GoogleGateway{
		oauth:   cfg.OAuth,
		loc:     cfg.Location,
		marker:  cfg.Marker,
		timeout: cfg.Timeout,
		factory: cfg.Factory,
		logger:  logger,
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	if g.factory == nil {
		g.factory = g.oauthService
	}
	return g
}

func (g *GoogleGateway) oauthService(ctx context.Context, cred Credential) (*gcal.Service, error) {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
		TokenType:    "Bearer",
	}
	var ts oauth2.TokenSource
	if g.oauth != nil {
		ts = g.oauth.TokenSource(ctx, token)
	} else {
		ts = oauth2.StaticTokenSource(token)
	}
	return gcal.NewService(ctx, option.WithTokenSource(ts))
}

func (g *GoogleGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *GoogleGateway) ListAvailabilityMarkers(ctx context.Context, cred Credential, date time.Time) []Event {
	events, err := g.listDay(ctx, cred, date, g.marker.Keyword())
	if err != nil {
		g.logger.Warn("list availability markers failed",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Error(err),
		)
		return nil
	}
	return g.marker.Markers(events)
}

func (g *GoogleGateway) ListBusyEvents(ctx context.Context, cred Credential, date time.Time) []Event {
	events, err := g.listDay(ctx, cred, date, "")
	if err != nil {
		g.logger.Warn("list busy events failed",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Error(err),
		)
		return nil
	}
	return g.marker.Busy(events)
}

func (g *GoogleGateway) ListEvents(ctx context.Context, cred Credential, date time.Time) []Event {
	events, err := g.listDay(ctx, cred, date, "")
	if err != nil {
		g.logger.Warn("list events failed",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Error(err),
		)
		return nil
	}
	out := events[:0]
	for _, ev := range events {
		if !ev.AllDay {
			out = append(out, ev)
		}
	}
	return out
}

func (g *GoogleGateway) listDay(ctx context.Context, cred Credential, date time.Time, query string) ([]Event, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	svc, err := g.factory(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}

	dayStart, dayEnd := DayBounds(date, g.loc)
	call := svc.Events.List(primaryCalendar).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if query != "" {
		call = call.Q(query)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("events.list: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev, err := g.convert(item)
		if err != nil {
			g.logger.Debug("skipping calendar event", zap.String("event_id", item.Id), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (g *GoogleGateway) convert(item *gcal.Event) (Event, error) {
	if item.Start == nil || item.End == nil {
		return Event{}, fmt.Errorf("event without start or end")
	}
	ev := Event{ID: item.Id, Summary: item.Summary}

	if item.Start.DateTime == "" {
		start, err := time.ParseInLocation(time.DateOnly, item.Start.Date, g.loc)
		if err != nil {
			return Event{}, fmt.Errorf("parse all-day start: %w", err)
		}
		end, err := time.ParseInLocation(time.DateOnly, item.End.Date, g.loc)
		if err != nil {
			return Event{}, fmt.Errorf("parse all-day end: %w", err)
		}
		ev.Start, ev.End, ev.AllDay = start, end, true
		return ev, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return Event{}, fmt.Errorf("parse start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return Event{}, fmt.Errorf("parse end: %w", err)
	}
	ev.Start, ev.End = start, end
	return ev, nil
}

func (g *GoogleGateway) CreateEvent(ctx context.Context, cred Credential, req EventRequest) (*CreatedEvent, bool) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	svc, err := g.factory(ctx, cred)
	if err != nil {
		g.logger.Warn("create calendar event: client", zap.Error(err))
		return nil, false
	}

	const layout = "2006-01-02T15:04:05"
	ev := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Start.In(g.loc).Format(layout), TimeZone: g.loc.String()},
		End:         &gcal.EventDateTime{DateTime: req.End.In(g.loc).Format(layout), TimeZone: g.loc.String()},
	}
	for _, email := range req.Attendees {
		if email == "" {
			continue
		}
		ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: email})
	}

	if req.Virtual {
		ev.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}

	call := svc.Events.Insert(primaryCalendar, ev).SendUpdates("all").Context(ctx)
	if req.Virtual {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		g.logger.Warn("create calendar event failed", zap.Error(err))
		return nil, false
	}

	out := &CreatedEvent{EventID: created.Id}
	if req.Virtual {
		out.MeetLink = meetLink(created)
	}
	return out, true
}

func meetLink(ev *gcal.Event) *string {
	if ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				uri := ep.Uri
				return &uri
			}
		}
		if len(ev.ConferenceData.EntryPoints) > 0 && ev.ConferenceData.EntryPoints[0].Uri != "" {
			uri := ev.ConferenceData.EntryPoints[0].Uri
			return &uri
		}
	}
	if ev.HangoutLink != "" {
		link := ev.HangoutLink
		return &link
	}
	return nil
}

func (g *GoogleGateway) DeleteEvent(ctx context.Context, cred Credential, eventID string) bool {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	svc, err := g.factory(ctx, cred)
	if err != nil {
		g.logger.Warn("delete calendar event: client", zap.String("event_id", eventID), zap.Error(err))
		return false
	}
	if err := svc.Events.Delete(primaryCalendar, eventID).Context(ctx).Do(); err != nil {
		g.logger.Warn("delete calendar event failed", zap.String("event_id", eventID), zap.Error(err))
		return false
	}
	return true
}
