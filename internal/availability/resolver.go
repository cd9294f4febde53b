// Package availability turns calendar markers, schedule blocks and busy time
// into bookable slots.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/calendar"
	"github.com/hackgods/counseling-appointments/internal/interval"
)

const defaultConcurrency = 8

// daySource identifies slots computed over a whole local day.
const daySource = "day"

// Store is the subset of the appointment repository the resolver reads.
type Store interface {
	ListCounselors(ctx context.Context, site string) ([]appointment.Counselor, error)
	GetCounselorByID(ctx context.Context, id uuid.UUID) (*appointment.Counselor, error)
	ListScheduleBlocks(ctx context.Context, counselorID uuid.UUID, weekday time.Weekday) ([]appointment.ScheduleBlock, error)
	ListAppointmentsByCounselorDate(ctx context.Context, counselorID uuid.UUID, date time.Time) ([]appointment.Appointment, error)
}

type Query struct {
	Site string
	Date time.Time // calendar date, see appointment.ParseDate
}

// SlotKey is the identity of a slot within one response.
type SlotKey struct {
	CounselorID uuid.UUID
	SourceID    string
	Start       int64
}

type Slot struct {
	CounselorID   uuid.UUID
	CounselorName string
	SourceID      string
	Start         time.Time
	End           time.Time
	Label         string
}

func (s Slot) Key() SlotKey {
	return SlotKey{CounselorID: s.CounselorID, SourceID: s.SourceID, Start: s.Start.Unix()}
}

type Resolver struct {
	store       Store
	gateway     calendar.Gateway
	policy      appointment.Policy
	logger      *zap.Logger
	concurrency int
}

func NewResolver(store Store, gateway calendar.Gateway, policy appointment.Policy, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:       store,
		gateway:     gateway,
		policy:      policy,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
}

type sourceRange struct {
	id  string
	rng interval.Interval
}

// Resolve lists the bookable slots of every counselor at q.Site on q.Date.
// A counselor whose lookup fails contributes no slots.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]Slot, error) {
	counselors, err := r.store.ListCounselors(ctx, q.Site)
	if err != nil {
		return nil, fmt.Errorf("list counselors: %w", err)
	}

	perCounselor := make([][]Slot, len(counselors))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range counselors {
		c := &counselors[i]
		g.Go(func() error {
			slots, err := r.counselorSlots(ctx, c, q.Date)
			if err != nil {
				r.logger.Warn("counselor availability failed",
					zap.Stringer("counselor_id", c.ID),
					zap.String("date", q.Date.Format(time.DateOnly)),
					zap.Error(err))
				return nil
			}
			perCounselor[i] = slots
			return nil
		})
	}
	_ = g.Wait()

	var all []Slot
	for _, slots := range perCounselor {
		all = append(all, slots...)
	}
	return dedupe(all), nil
}

func (r *Resolver) counselorSlots(ctx context.Context, c *appointment.Counselor, date time.Time) ([]Slot, error) {
	var ranges []sourceRange
	var busy []interval.Interval

	cred, hasCred := c.Credential()
	if hasCred {
		for _, m := range r.gateway.ListAvailabilityMarkers(ctx, cred, date) {
			ranges = append(ranges, sourceRange{id: m.ID, rng: interval.Interval{Start: m.Start, End: m.End}})
		}
		busy = append(busy, eventIntervals(r.gateway.ListBusyEvents(ctx, cred, date))...)
	}

	if len(ranges) == 0 {
		blocks, err := r.store.ListScheduleBlocks(ctx, c.ID, date.Weekday())
		if err != nil {
			return nil, fmt.Errorf("list schedule blocks: %w", err)
		}
		for _, b := range blocks {
			start, err := r.policy.SlotStart(date, b.StartTime)
			if err != nil {
				r.logger.Warn("skipping malformed schedule block", zap.Stringer("block_id", b.ID), zap.Error(err))
				continue
			}
			end, err := r.policy.SlotStart(date, b.EndTime)
			if err != nil {
				r.logger.Warn("skipping malformed schedule block", zap.Stringer("block_id", b.ID), zap.Error(err))
				continue
			}
			ranges = append(ranges, sourceRange{id: b.ID.String(), rng: interval.Interval{Start: start, End: end}})
		}
	}
	if len(ranges) == 0 {
		return nil, nil
	}

	booked, err := r.bookedIntervals(ctx, c.ID, date)
	if err != nil {
		return nil, err
	}
	busy = append(busy, booked...)

	var slots []Slot
	for _, src := range ranges {
		slots = append(slots, r.slotsIn(c, src, busy)...)
	}
	return slots, nil
}

// CounselorDay lists one counselor's free hours over the whole local day.
// Every timed calendar event and pending appointment counts as busy.
func (r *Resolver) CounselorDay(ctx context.Context, counselorID uuid.UUID, date time.Time) ([]Slot, error) {
	c, err := r.store.GetCounselorByID(ctx, counselorID)
	if err != nil {
		return nil, err
	}

	var busy []interval.Interval
	if cred, ok := c.Credential(); ok {
		busy = eventIntervals(r.gateway.ListEvents(ctx, cred, date))
	}
	booked, err := r.bookedIntervals(ctx, c.ID, date)
	if err != nil {
		return nil, err
	}
	busy = append(busy, booked...)

	start, end := calendar.DayBounds(date, r.policy.Location)
	return dedupe(r.slotsIn(c, sourceRange{id: daySource, rng: interval.Interval{Start: start, End: end}}, busy)), nil
}

func (r *Resolver) bookedIntervals(ctx context.Context, counselorID uuid.UUID, date time.Time) ([]interval.Interval, error) {
	appts, err := r.store.ListAppointmentsByCounselorDate(ctx, counselorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	var out []interval.Interval
	for _, a := range appts {
		if a.Status != appointment.StatusPending {
			continue
		}
		start, err := r.policy.SlotStart(a.Date, a.Time)
		if err != nil {
			continue
		}
		out = append(out, interval.Interval{Start: start, End: start.Add(r.policy.SlotDuration)})
	}
	return out, nil
}

func (r *Resolver) slotsIn(c *appointment.Counselor, src sourceRange, busy []interval.Interval) []Slot {
	var out []Slot
	for _, free := range interval.FreeIntervals(src.rng.Start, src.rng.End, busy) {
		for _, w := range interval.Subdivide(free, r.policy.SlotDuration) {
			out = append(out, Slot{
				CounselorID:   c.ID,
				CounselorName: c.DisplayName(),
				SourceID:      src.id,
				Start:         w.Start,
				End:           w.End,
				Label:         w.Start.In(r.policy.Location).Format("15:04"),
			})
		}
	}
	return out
}

func eventIntervals(events []calendar.Event) []interval.Interval {
	out := make([]interval.Interval, 0, len(events))
	for _, ev := range events {
		out = append(out, interval.Interval{Start: ev.Start, End: ev.End})
	}
	return out
}

// dedupe keeps the first slot per key and orders by start, then counselor.
func dedupe(slots []Slot) []Slot {
	seen := make(map[SlotKey]struct{}, len(slots))
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		if out[i].CounselorName != out[j].CounselorName {
			return out[i].CounselorName < out[j].CounselorName
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out
}
