package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/counseling-appointments/internal/calendar"
)

// memRepository mirrors the partial unique indexes of the SQL schema so the
// service can be exercised without Postgres.
type memRepository struct {
	mu         sync.Mutex
	students   map[uuid.UUID]Student
	counselors map[uuid.UUID]Counselor
	blocks     []ScheduleBlock
	appts      map[uuid.UUID]Appointment
	outcomes   map[uuid.UUID]Outcome
	events     []EventLog
	calls      int
}

func newMemRepository() *memRepository {
	return &memRepository{
		students:   map[uuid.UUID]Student{},
		counselors: map[uuid.UUID]Counselor{},
		appts:      map[uuid.UUID]Appointment{},
		outcomes:   map[uuid.UUID]Outcome{},
	}
}

func (m *memRepository) addStudent(name string) Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Student{ID: uuid.New(), Name: name, Email: name + "@example.edu"}
	m.students[s.ID] = s
	return s
}

func (m *memRepository) addCounselor(name string, withCalendar bool) Counselor {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Counselor{ID: uuid.New(), Name: name, Email: name + "@example.edu"}
	if withCalendar {
		token := "access-" + name
		c.CalendarAccessToken = &token
	}
	m.counselors[c.ID] = c
	return c
}

// put stores an appointment directly, bypassing constraint checks.
func (m *memRepository) put(a Appointment) Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.appts[a.ID] = a
	return a
}

func (m *memRepository) get(id uuid.UUID) Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appts[id]
}

func (m *memRepository) eventTypes(id uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ev := range m.events {
		if ev.AppointmentID != nil && *ev.AppointmentID == id {
			out = append(out, ev.EventType)
		}
	}
	return out
}

func (m *memRepository) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memRepository) touch() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

// violationLocked reports which unique index a would break.
func (m *memRepository) violationLocked(a Appointment) error {
	for id, other := range m.appts {
		if id == a.ID {
			continue
		}
		if a.Status == StatusPending && other.Status == StatusPending {
			if other.CounselorID == a.CounselorID && other.Date.Equal(a.Date) && other.Time == a.Time {
				return ErrSlotTaken
			}
			if other.StudentID == a.StudentID {
				return ErrPendingAppointmentExists
			}
		}
		if a.PriorAppointmentID != nil && other.PriorAppointmentID != nil && *a.PriorAppointmentID == *other.PriorAppointmentID &&
			a.Status != StatusCancelled && other.Status != StatusCancelled {
			return ErrAlreadySuperseded
		}
	}
	return nil
}

func (m *memRepository) GetStudentByID(_ context.Context, id uuid.UUID) (*Student, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	return &s, nil
}

func (m *memRepository) GetCounselorByID(_ context.Context, id uuid.UUID) (*Counselor, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counselors[id]
	if !ok {
		return nil, ErrCounselorNotFound
	}
	return &c, nil
}

func (m *memRepository) ListCounselors(_ context.Context, site string) ([]Counselor, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Counselor
	for _, c := range m.counselors {
		if site == "" || (c.Site != nil && *c.Site == site) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepository) ListCounselorsWithRefreshToken(_ context.Context) ([]Counselor, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Counselor
	for _, c := range m.counselors {
		if c.CalendarRefreshToken != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepository) UpdateCounselorCredential(_ context.Context, id uuid.UUID, accessToken string, refreshToken *string, expiry *time.Time) error {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counselors[id]
	if !ok {
		return ErrCounselorNotFound
	}
	c.CalendarAccessToken = &accessToken
	if refreshToken != nil {
		c.CalendarRefreshToken = refreshToken
	}
	c.CalendarTokenExpiry = expiry
	m.counselors[id] = c
	return nil
}

func (m *memRepository) CreateScheduleBlock(_ context.Context, block ScheduleBlock) (*ScheduleBlock, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	block.ID = uuid.New()
	m.blocks = append(m.blocks, block)
	return &block, nil
}

func (m *memRepository) ListScheduleBlocks(_ context.Context, counselorID uuid.UUID, weekday time.Weekday) ([]ScheduleBlock, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ScheduleBlock
	for _, b := range m.blocks {
		if b.CounselorID == counselorID && b.Weekday == weekday {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memRepository) GetSuccessor(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.PriorAppointmentID != nil && *a.PriorAppointmentID == id && a.Status != StatusCancelled {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepository) GetPendingForStudent(_ context.Context, studentID uuid.UUID) (*Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.StudentID == studentID && a.Status == StatusPending {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepository) ListAppointmentsByStudent(_ context.Context, studentID uuid.UUID) ([]Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Time > out[j].Time
	})
	return out, nil
}

func (m *memRepository) ListAppointmentsByCounselorDate(_ context.Context, counselorID uuid.UUID, date time.Time) ([]Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.CounselorID == counselorID && a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (m *memRepository) insertLocked(n NewAppointment) (*Appointment, error) {
	a := Appointment{
		ID:                 uuid.New(),
		StudentID:          n.StudentID,
		CounselorID:        n.CounselorID,
		Reason:             n.Reason,
		Date:               n.Date,
		Time:               n.Time,
		Modality:           n.Modality,
		Status:             n.Status,
		PriorAppointmentID: n.PriorAppointmentID,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := m.violationLocked(a); err != nil {
		return nil, err
	}
	m.appts[a.ID] = a
	return &a, nil
}

func (m *memRepository) CreateAppointment(_ context.Context, n NewAppointment) (*Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(n)
}

func (m *memRepository) SupersedeAppointment(_ context.Context, prevID uuid.UUID, from AppointmentStatus, next NewAppointment) (*Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.appts[prevID]
	if !ok || prev.Status != from {
		return nil, ErrAppointmentNotFound
	}
	prev.Status = StatusRescheduled
	m.appts[prevID] = prev
	created, err := m.insertLocked(next)
	if err != nil {
		prev.Status = from
		m.appts[prevID] = prev
		return nil, err
	}
	return created, nil
}

func (m *memRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if err := m.violationLocked(a); err != nil {
		return nil, err
	}
	m.appts[id] = a
	return &a, nil
}

func (m *memRepository) SetCalendarEvent(_ context.Context, id uuid.UUID, eventID, meetLink *string) (*Appointment, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.CalendarEventID = eventID
	a.MeetLink = meetLink
	m.appts[id] = a
	return &a, nil
}

func (m *memRepository) RecordOutcome(_ context.Context, id uuid.UUID, from, to AppointmentStatus, outcome Outcome) (*Appointment, *Outcome, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, nil, ErrAppointmentNotFound
	}
	a.Status = to
	m.appts[id] = a
	outcome.AppointmentID = id
	m.outcomes[id] = outcome
	return &a, &outcome, nil
}

func (m *memRepository) GetOutcome(_ context.Context, id uuid.UUID) (*Outcome, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outcomes[id]
	if !ok {
		return nil, ErrOutcomeNotFound
	}
	return &o, nil
}

func (m *memRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	createFn func(req calendar.EventRequest) (*calendar.CreatedEvent, bool)
	deleteFn func(eventID string) bool
	created  []calendar.EventRequest
	deleted  []string
	nextID   int
}

func (f *fakeGateway) ListAvailabilityMarkers(context.Context, calendar.Credential, time.Time) []calendar.Event {
	return nil
}

func (f *fakeGateway) ListBusyEvents(context.Context, calendar.Credential, time.Time) []calendar.Event {
	return nil
}

func (f *fakeGateway) ListEvents(context.Context, calendar.Credential, time.Time) []calendar.Event {
	return nil
}

func (f *fakeGateway) CreateEvent(_ context.Context, _ calendar.Credential, req calendar.EventRequest) (*calendar.CreatedEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createFn != nil {
		return f.createFn(req)
	}
	f.nextID++
	ev := &calendar.CreatedEvent{EventID: "evt-" + string(rune('a'+f.nextID-1))}
	if req.Virtual {
		link := "https://meet.google.com/" + ev.EventID
		ev.MeetLink = &link
	}
	return ev, true
}

func (f *fakeGateway) DeleteEvent(_ context.Context, _ calendar.Credential, eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	if f.deleteFn != nil {
		return f.deleteFn(eventID)
	}
	return true
}
